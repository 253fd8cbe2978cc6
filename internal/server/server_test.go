package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/listings-eda/internal/analysis"
	"github.com/KaramelBytes/listings-eda/internal/cleaner"
	"github.com/KaramelBytes/listings-eda/internal/loader"
)

// listingsCSV returns n rows: the first 60% entire homes, prices 40, 60, 80, ...
func listingsCSV(n int) string {
	var b strings.Builder
	b.WriteString("id,name,host_name,neighbourhood_group,neighbourhood,latitude,longitude,room_type,price,minimum_nights,number_of_reviews,last_review,reviews_per_month,calculated_host_listings_count,availability_365\n")
	hoods := []string{"Harlem", "Williamsburg", "Astoria"}
	boroughs := []string{"Manhattan", "Brooklyn", "Queens"}
	for i := 0; i < n; i++ {
		room := "Private room"
		if i < n*6/10 {
			room = "Entire home/apt"
		}
		name := fmt.Sprintf("Listing %d", i)
		if i%7 == 0 {
			name = ""
		}
		fmt.Fprintf(&b, "%d,%s,host%d,%s,%s,%.4f,%.4f,%s,%d,%d,%d,2019-06-01,0.5,%d,%d\n",
			i+1, name, i, boroughs[i%3], hoods[i%3], 40.70+float64(i)*0.001, -73.95+float64(i)*0.001,
			room, 40+20*i, 1+i%4, 3*i, 1+i%2, 365-i)
	}
	return b.String()
}

type testServer struct {
	srv    *Server
	ts     *httptest.Server
	loader *loader.Loader
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()
	cfg := Config{
		Settings:        analysis.DefaultSettings(),
		Rules:           cleaner.DefaultRules(),
		SliderCap:       5000,
		DefaultPriceMax: 500,
		UploadMaxBytes:  1 << 20,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	ld := loader.New(loader.Options{}, nil)
	srv := New(cfg, ld, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{srv: srv, ts: ts, loader: ld}
}

func (s *testServer) post(t *testing.T, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	resp, err := http.Post(s.ts.URL+path, contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testServer) upload(t *testing.T, csv string) string {
	t.Helper()
	resp := s.post(t, "/api/datasets?name=listings.csv", "text/csv", strings.NewReader(csv))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	e, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "error envelope missing: %v", body)
	code, _ := e["error_code"].(string)
	return code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	resp, err := http.Get(s.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	s.upload(t, listingsCSV(10))
	mresp, err := http.Get(s.ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	text, _ := io.ReadAll(mresp.Body)
	assert.Contains(t, string(text), "listings_eda_loader_parses_total 1")
	assert.Contains(t, string(text), "listings_eda_datasets_loaded 1")
	assert.Contains(t, string(text), `route="/api/datasets"`)
}

func TestIdenticalUploadsShareOneParse(t *testing.T) {
	s := newTestServer(t, nil)
	csv := listingsCSV(20)
	a := s.upload(t, csv)
	b := s.upload(t, csv)
	assert.Equal(t, a, b)
	st := s.loader.Stats()
	assert.Equal(t, 1, st.Parses)
	assert.Equal(t, 1, st.Hits)
}

func TestMultipartUpload(t *testing.T) {
	s := newTestServer(t, nil)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "AB_NYC_2019.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(listingsCSV(5)))
	require.NoError(t, mw.Close())

	resp := s.post(t, "/api/datasets", mw.FormDataContentType(), &body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ds := decode(t, resp)
	assert.Equal(t, "AB_NYC_2019.csv", ds["name"])
	assert.Equal(t, float64(5), ds["rows"])
	assert.NotContains(t, ds["columns"], "last_review")
}

func TestDashboardDefaultsAndPartialSpecs(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.upload(t, listingsCSV(40))

	tests := []struct {
		name string
		body string
		rows float64
	}{
		// default price window 0..500 keeps prices 40..500 (24 rows)
		{name: "empty body uses default", body: "", rows: 24},
		{name: "empty object uses default", body: "{}", rows: 24},
		{name: "explicit empty room types", body: `{"room_types": []}`, rows: 0},
		{name: "single room type", body: `{"room_types": ["Private room"], "price_max": 5000}`, rows: 16},
		{name: "full price range", body: `{"price_max": 1000}`, rows: 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.post(t, "/api/datasets/"+id+"/dashboard", "application/json", strings.NewReader(tt.body))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			d := decode(t, resp)
			kpis := d["kpis"].(map[string]interface{})
			assert.Equal(t, tt.rows, kpis["rows"])
			assert.Equal(t, float64(40), d["total_rows"])
		})
	}
}

func TestDashboardValidation(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.upload(t, listingsCSV(10))

	resp := s.post(t, "/api/datasets/"+id+"/dashboard", "application/json", strings.NewReader(`{"price_min": 100, "price_max": 50}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, resp))

	resp = s.post(t, "/api/datasets/"+id+"/dashboard", "application/json", strings.NewReader(`{"rooms": []}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, resp))
}

func TestUnknownDataset(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.post(t, "/api/datasets/nope/dashboard", "application/json", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, resp))
}

func TestUnreadableUploadIs422(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.post(t, "/api/datasets?name=broken.csv", "text/csv", strings.NewReader("a,b\n1,2,3\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode(t, resp)
	e := body["error"].(map[string]interface{})
	assert.Equal(t, "READ_ERROR", e["error_code"])
	details := e["details"].(map[string]interface{})
	assert.Equal(t, "broken.csv", details["source"])
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.UploadMaxBytes = 64 })
	resp := s.post(t, "/api/datasets", "text/csv", strings.NewReader(listingsCSV(10)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestLoadPathOnlyConfigured(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "airbnb_clean.csv")
	require.NoError(t, os.WriteFile(good, []byte(listingsCSV(8)), 0o644))
	missing := filepath.Join(dir, "AB_NYC_2019.csv")
	s := newTestServer(t, func(c *Config) { c.DataPaths = []string{missing, good} })

	resp, err := http.Get(s.ts.URL + "/api/sources")
	require.NoError(t, err)
	defer resp.Body.Close()
	src := decode(t, resp)
	assert.Equal(t, good, src["default"])

	denied := s.post(t, "/api/datasets/path", "application/json", strings.NewReader(`{"path": "/etc/passwd"}`))
	assert.Equal(t, http.StatusForbidden, denied.StatusCode)

	ok := s.post(t, "/api/datasets/path", "application/json", strings.NewReader(fmt.Sprintf(`{"path": %q}`, good)))
	require.Equal(t, http.StatusCreated, ok.StatusCode)
	assert.Equal(t, float64(8), decode(t, ok)["rows"])

	gone := s.post(t, "/api/datasets/path", "application/json", strings.NewReader(fmt.Sprintf(`{"path": %q}`, missing)))
	assert.Equal(t, http.StatusUnprocessableEntity, gone.StatusCode)
}

func TestViewLimit(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.upload(t, listingsCSV(30))
	resp := s.post(t, "/api/datasets/"+id+"/view?limit=5", "application/json", strings.NewReader(`{"price_max": 5000}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode(t, resp)
	assert.Equal(t, float64(30), v["visible_rows"])
	assert.Equal(t, float64(5), v["returned"])
	recs := v["records"].([]interface{})
	first := recs[0].(map[string]interface{})
	assert.Equal(t, "Unknown", first["name"])

	bad := s.post(t, "/api/datasets/"+id+"/view?limit=0", "application/json", nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestChartEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.upload(t, listingsCSV(25))
	resp := s.post(t, "/api/datasets/"+id+"/charts/histogram?width=400&height=300", "application/json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

	bad := s.post(t, "/api/datasets/"+id+"/charts/pie", "application/json", nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	empty := s.post(t, "/api/datasets/"+id+"/charts/geo", "application/json", strings.NewReader(`{"room_types": []}`))
	assert.Equal(t, http.StatusUnprocessableEntity, empty.StatusCode)
}

func TestUploadRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})
	s.upload(t, listingsCSV(3))
	resp := s.post(t, "/api/datasets", "text/csv", strings.NewReader(listingsCSV(4)))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, resp))
}

func TestDeleteDatasetInvalidatesCache(t *testing.T) {
	s := newTestServer(t, nil)
	csv := listingsCSV(10)
	id := s.upload(t, csv)

	req, err := http.NewRequest(http.MethodDelete, s.ts.URL+"/api/datasets/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	gone := s.post(t, "/api/datasets/"+id+"/dashboard", "application/json", strings.NewReader("{}"))
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)

	again := s.upload(t, csv)
	assert.NotEqual(t, id, again)
	assert.Equal(t, 2, s.loader.Stats().Parses)
}

func TestInfinitePriceUploadStaysUsable(t *testing.T) {
	s := newTestServer(t, nil)
	csv := "room_type,neighbourhood_group,price,minimum_nights\nPrivate room,Brooklyn,inf,3\nPrivate room,Queens,90,2\n"
	id := s.upload(t, csv)

	opts, err := http.Get(s.ts.URL + "/api/datasets/" + id + "/options")
	require.NoError(t, err)
	defer opts.Body.Close()
	require.Equal(t, http.StatusOK, opts.StatusCode)
	body := decode(t, opts)
	o := body["options"].(map[string]interface{})
	assert.Equal(t, 90.0, o["price_max"])

	resp := s.post(t, "/api/datasets/"+id+"/dashboard", "application/json", strings.NewReader(`{"price_max": 1000}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode(t, resp)
	kpis := d["kpis"].(map[string]interface{})
	assert.Equal(t, 1.0, kpis["rows"])
}

func TestFullFilterRoundTripsWithNegativePrice(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.upload(t, "room_type,neighbourhood_group,price\nPrivate room,Brooklyn,-15\nShared room,Queens,70\n")

	resp, err := http.Get(s.ts.URL + "/api/datasets/" + id + "/options")
	require.NoError(t, err)
	defer resp.Body.Close()
	body := decode(t, resp)
	full, err := json.Marshal(body["full_filter"])
	require.NoError(t, err)

	dash := s.post(t, "/api/datasets/"+id+"/dashboard", "application/json", bytes.NewReader(full))
	require.Equal(t, http.StatusOK, dash.StatusCode)
	d := decode(t, dash)
	assert.Equal(t, 2.0, d["kpis"].(map[string]interface{})["rows"])
}
