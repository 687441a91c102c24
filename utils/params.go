package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
)

const maxBodyBytes = 1 << 20

// ListQuery carries the search box and dropdown filters of a list view.
type ListQuery struct {
	Search    string
	Status    string
	Role      string
	Packaging string
}

func ParseListQuery(r *http.Request) ListQuery {
	q := r.URL.Query()
	return ListQuery{
		Search:    strings.TrimSpace(q.Get("search")),
		Status:    q.Get("status"),
		Role:      q.Get("role"),
		Packaging: q.Get("packaging"),
	}
}

// ParamID reads a positive integer path parameter.
func ParamID(ps httprouter.Params, name string) (int, error) {
	id, err := strconv.Atoi(ps.ByName(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, ps.ByName(name))
	}
	return id, nil
}

// DecodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
