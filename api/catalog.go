package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"musa/models"
)

func (c *Client) FetchProducts(ctx context.Context, caller Caller) ([]models.Product, error) {
	var resp struct {
		Envelope
		Products []models.Product `json:"products"`
	}
	err := c.getJSON(ctx, caller, Public, "/products", &resp)
	return resp.Products, err
}

func (c *Client) FetchProduct(ctx context.Context, caller Caller, id int) (models.Product, error) {
	var resp struct {
		Envelope
		Product models.Product `json:"product"`
	}
	err := c.getJSON(ctx, caller, Public, fmt.Sprintf("/products/%d", id), &resp)
	return resp.Product, err
}

// FetchPrices returns the price series of one product.
func (c *Client) FetchPrices(ctx context.Context, caller Caller, productID int) ([]models.Price, error) {
	var resp struct {
		Envelope
		Prices []models.Price `json:"prices"`
	}
	err := c.getJSON(ctx, caller, Public, fmt.Sprintf("/prices/%d", productID), &resp)
	return resp.Prices, err
}

func (c *Client) FetchAdminProducts(ctx context.Context, caller Caller) ([]models.Product, error) {
	var resp struct {
		Envelope
		Products []models.Product `json:"products"`
	}
	err := c.getJSON(ctx, caller, Admin, "/admin/products", &resp)
	return resp.Products, err
}

func (c *Client) AddPrice(ctx context.Context, caller Caller, p models.Price) error {
	body := struct {
		ProductID int    `json:"product_id"`
		Price     string `json:"price"`
		Date      string `json:"date"`
	}{p.ProductID, p.Price.String(), p.Date}
	return c.sendJSON(ctx, caller, Admin, http.MethodPost, "/prices", body, nil)
}

// Upload is one file of a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductForm is the multipart body of product create and update.
type ProductForm struct {
	Name           string
	Description    string
	Packaging      string
	ShelfLife      string
	AvailableStock int
	RestockDate    string
	IsActive       bool
	Images         []Upload
}

func (f ProductForm) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fields := [][2]string{
		{"name", f.Name},
		{"description", f.Description},
		{"packaging", f.Packaging},
		{"shelf_life", f.ShelfLife},
		{"available_stock", strconv.Itoa(f.AvailableStock)},
		{"restock_date", f.RestockDate},
		{"is_active", strconv.FormatBool(f.IsActive)},
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	for _, img := range f.Images {
		if err := writeFile(w, "images", img); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, u Upload) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, u.Filename))
	ct := u.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(u.Data)
	return err
}

func (c *Client) sendProduct(ctx context.Context, caller Caller, method, path string, f ProductForm) (models.Product, error) {
	body, ct, err := f.encode()
	if err != nil {
		return models.Product{}, fmt.Errorf("encode product form: %w", err)
	}
	var resp struct {
		Envelope
		Product models.Product `json:"product"`
	}
	err = c.send(ctx, caller, request{capability: Admin, method: method, path: path, body: body, contentType: ct}, &resp)
	return resp.Product, err
}

// AddProduct creates a product. The path has no /admin/ prefix but the
// call is an admin call.
func (c *Client) AddProduct(ctx context.Context, caller Caller, f ProductForm) (models.Product, error) {
	return c.sendProduct(ctx, caller, http.MethodPost, "/products", f)
}

func (c *Client) UpdateProduct(ctx context.Context, caller Caller, id int, f ProductForm) (models.Product, error) {
	return c.sendProduct(ctx, caller, http.MethodPut, fmt.Sprintf("/products/%d", id), f)
}
