package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musa/api"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondWithAPIError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"server message", &api.ServerError{Status: 404, Message: "Order not found"}, 404, "Order not found"},
		{"success false on 200", &api.ServerError{Status: 200, Message: "Invalid credentials"}, 400, "Invalid credentials"},
		{"server without message", &api.ServerError{Status: 500}, 500, "Failed"},
		{"transport", &api.TransportError{Method: "GET", Path: "/x", Err: errors.New("refused")}, 502, "Failed"},
		{"decode", fmt.Errorf("wrapped: %w", &api.DecodeError{Path: "/x", Err: errors.New("bad")}), 502, "Failed"},
		{"missing token", fmt.Errorf("%w: user token", api.ErrMissingCredential), 401, "Please log in to continue"},
		{"other", errors.New("boom"), 500, "Failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondWithAPIError(rec, tc.err, "Failed")
			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestParamID(t *testing.T) {
	id, err := ParamID(httprouter.Params{{Key: "id", Value: "12"}}, "id")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = ParamID(httprouter.Params{{Key: "id", Value: "abc"}}, "id")
	assert.Error(t, err)
	_, err = ParamID(httprouter.Params{{Key: "id", Value: "0"}}, "id")
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	var v struct{ Name string }
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "x", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, DecodeJSON(r, &v))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.Error(t, DecodeJSON(r, &v))
}

func TestParseListQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?search=+ban+&status=pending&role=admin&packaging=box", nil)
	q := ParseListQuery(r)
	assert.Equal(t, ListQuery{Search: "ban", Status: "pending", Role: "admin", Packaging: "box"}, q)
}
