// Package catalog serves the product list, product detail with its price
// history, and the back-office product and price management.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"musa/api"
	"musa/filter"
	"musa/models"
	"musa/session"
	"musa/utils"
)

const (
	maxUploadBytes = 32 << 20
	// priceFanout bounds concurrent price lookups in the admin price list.
	priceFanout = 8
)

type Handler struct {
	API *api.Client
	Now func() time.Time
}

func (h *Handler) today() string {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	return now.Format(time.DateOnly)
}

// GetProducts lists the catalog, narrowed by ?search= (name, description)
// and ?packaging=.
func GetProducts(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := session.FromContext(r.Context())
		list, err := h.API.FetchProducts(r.Context(), session.Caller(sess))
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load products")
			return
		}
		q := utils.ParseListQuery(r)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"success":  true,
			"products": filter.Products(list, q.Search, q.Packaging),
		})
	}
}

// GetProduct returns one product with its price series (oldest first) and
// the current price.
func GetProduct(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		caller := session.Caller(session.FromContext(r.Context()))

		var (
			product models.Product
			prices  []models.Price
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			product, err = h.API.FetchProduct(ctx, caller, id)
			return err
		})
		g.Go(func() error {
			var err error
			prices, err = h.API.FetchPrices(ctx, caller, id)
			return err
		})
		if err := g.Wait(); err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load product")
			return
		}

		body := utils.M{
			"success": true,
			"product": product,
			"prices":  filter.SortPricesByDate(prices, false),
		}
		if current, ok := filter.CurrentPrice(prices); ok {
			body["current_price"] = current
		}
		utils.RespondWithJSON(w, http.StatusOK, body)
	}
}

func GetAdminProducts(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := session.FromContext(r.Context())
		list, err := h.API.FetchAdminProducts(r.Context(), session.Caller(sess))
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load products")
			return
		}
		q := utils.ParseListQuery(r)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"success":  true,
			"products": filter.Products(list, q.Search, q.Packaging),
		})
	}
}

// productForm reads the multipart product form the back-office posts.
func productForm(r *http.Request) (api.ProductForm, string) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return api.ProductForm{}, "Invalid form data"
	}
	f := api.ProductForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Packaging:   strings.TrimSpace(r.FormValue("packaging")),
		ShelfLife:   strings.TrimSpace(r.FormValue("shelf_life")),
		RestockDate: strings.TrimSpace(r.FormValue("restock_date")),
		IsActive:    true,
	}
	if f.Name == "" {
		return f, "Product name is required"
	}
	if v := strings.TrimSpace(r.FormValue("available_stock")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, "Available stock must be a whole number"
		}
		f.AvailableStock = n
	}
	if f.RestockDate != "" {
		if _, err := time.Parse(time.DateOnly, f.RestockDate); err != nil {
			return f, "Restock date must be YYYY-MM-DD"
		}
	}
	if v := r.FormValue("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, "is_active must be true or false"
		}
		f.IsActive = b
	}
	for _, fh := range r.MultipartForm.File["images"] {
		up, err := readUpload(fh)
		if err != nil {
			log.Printf("product image %s: %v", fh.Filename, err)
			return f, "Could not read uploaded image"
		}
		f.Images = append(f.Images, up)
	}
	return f, ""
}

func readUpload(fh *multipart.FileHeader) (api.Upload, error) {
	file, err := fh.Open()
	if err != nil {
		return api.Upload{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return api.Upload{}, err
	}
	return api.Upload{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func CreateProduct(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		f, problem := productForm(r)
		if problem != "" {
			utils.RespondWithError(w, http.StatusBadRequest, problem)
			return
		}
		sess := session.FromContext(r.Context())
		p, err := h.API.AddProduct(r.Context(), session.Caller(sess), f)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to save product")
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "product": p, "message": "Product added"})
	}
}

func UpdateProduct(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		f, problem := productForm(r)
		if problem != "" {
			utils.RespondWithError(w, http.StatusBadRequest, problem)
			return
		}
		sess := session.FromContext(r.Context())
		p, err := h.API.UpdateProduct(r.Context(), session.Caller(sess), id, f)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to save product")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "product": p, "message": "Product updated"})
	}
}

// GetAllPrices gathers the price series of every product, newest first.
func GetAllPrices(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		caller := session.Caller(session.FromContext(r.Context()))
		products, err := h.API.FetchAdminProducts(r.Context(), caller)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load products")
			return
		}

		// a failed series is left out rather than failing the whole list,
		// so the group has no shared context to cancel
		series := make([][]models.Price, len(products))
		errs := make([]error, len(products))
		var g errgroup.Group
		g.SetLimit(priceFanout)
		for i, p := range products {
			g.Go(func() error {
				prices, err := h.API.FetchPrices(r.Context(), caller, p.ID)
				if err != nil {
					errs[i] = fmt.Errorf("product %d: %w", p.ID, err)
					return errs[i]
				}
				for j := range prices {
					prices[j].ProductID = p.ID
					prices[j].ProductName = p.Name
				}
				series[i] = prices
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			log.Printf("price history incomplete: %v", errors.Join(errs...))
		}

		var all []models.Price
		for _, s := range series {
			all = append(all, s...)
		}
		q := utils.ParseListQuery(r)
		all = filter.SortPricesByDate(filter.Prices(all, q.Search), true)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "prices": all})
	}
}

// AddPrice appends a price to a product's series. The date defaults to
// today.
func AddPrice(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			ProductID int              `json:"product_id"`
			Price     *decimal.Decimal `json:"price"`
			Date      string           `json:"date"`
		}
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.ProductID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Product is required")
			return
		}
		if body.Price == nil || !body.Price.IsPositive() {
			utils.RespondWithError(w, http.StatusBadRequest, "Price must be greater than zero")
			return
		}
		if body.Date == "" {
			body.Date = h.today()
		} else if _, err := time.Parse(time.DateOnly, body.Date); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Date must be YYYY-MM-DD")
			return
		}

		price := models.Price{ProductID: body.ProductID, Price: *body.Price, Date: body.Date}
		sess := session.FromContext(r.Context())
		if err := h.API.AddPrice(r.Context(), session.Caller(sess), price); err != nil {
			utils.RespondWithAPIError(w, err, "Error adding price")
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "price": price, "message": "Price added successfully"})
	}
}
