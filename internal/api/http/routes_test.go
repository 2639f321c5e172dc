package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/i474232898/zukan/internal/geocode"
	"github.com/i474232898/zukan/internal/store"
	"github.com/i474232898/zukan/internal/weather"
	"github.com/i474232898/zukan/internal/zukan"
	"github.com/i474232898/zukan/internal/zukan/mocks"
)

var pngPhoto = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testServer struct {
	app       *fiber.App
	describer *mocks.MockDescriber
	species   *mocks.MockSpeciesResolver
	weather   *mocks.MockWeatherLookup
	geocoder  *mocks.MockGeocoder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctrl := gomock.NewController(t)

	ts := &testServer{
		describer: mocks.NewMockDescriber(ctrl),
		species:   mocks.NewMockSpeciesResolver(ctrl),
		weather:   mocks.NewMockWeatherLookup(ctrl),
		geocoder:  mocks.NewMockGeocoder(ctrl),
	}
	svc := zukan.NewService(zukan.Deps{
		Describer: ts.describer,
		Species:   ts.species,
		Weather:   ts.weather,
		Geocoder:  ts.geocoder,
		Store:     store.NewMemoryStore(),
	})

	ts.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(ts.app, svc)
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) (int, []byte, http.Header) {
	t.Helper()
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body, resp.Header
}

func entryForm(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func tokyoFields() map[string]string {
	return map[string]string{
		"name":     "ねこ",
		"location": "Tokyo",
		"date":     "2024-05-01",
		"time":     "09:30",
	}
}

type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func TestEntryLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.EXPECT().Forward(gomock.Any(), "Tokyo").Return(geocode.Point{}, geocode.ErrNoResults)
	ts.describer.EXPECT().Describe(gomock.Any(), gomock.Any()).Return("A feline...", nil)
	ts.species.EXPECT().ScientificName(gomock.Any(), "ねこ").Return("Felis catus", nil)
	ts.weather.EXPECT().Current(gomock.Any(), weather.Location{Name: "Tokyo"}, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)).
		Return(weather.Report{Description: "clear sky", TemperatureC: 22.5}, nil)

	status, body, _ := ts.do(t, entryForm(t, tokyoFields(), pngPhoto))
	require.Equal(t, http.StatusCreated, status, string(body))

	var built zukan.Entry
	require.NoError(t, json.Unmarshal(body, &built))
	assert.Equal(t, "Felis catus", built.ScientificName)
	assert.Equal(t, "2024-05-01 09:30", built.CaptureDateTime)
	require.NotNil(t, built.Temperature)
	assert.Equal(t, 22.5, *built.Temperature)

	status, body, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/entries/pending", nil))
	require.Equal(t, http.StatusOK, status)
	var pending zukan.Entry
	require.NoError(t, json.Unmarshal(body, &pending))
	assert.Equal(t, built.ID, pending.ID)

	status, body, _ = ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/entries/pending/save", nil))
	require.Equal(t, http.StatusCreated, status)
	var saved zukan.Entry
	require.NoError(t, json.Unmarshal(body, &saved))
	assert.Equal(t, built.ID, saved.ID)

	status, body, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil))
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Count   int           `json:"count"`
		Entries []zukan.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, built.ID, list.Entries[0].ID)

	status, body, header := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/entries/"+built.ID+"/image", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "image/png", header.Get("Content-Type"))
	assert.Equal(t, pngPhoto, body)

	status, _, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/entries/pending", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateEntryRejections(t *testing.T) {
	tests := []struct {
		name        string
		fields      map[string]string
		image       []byte
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "missing name and image",
			fields:      map[string]string{"location": "Tokyo", "date": "2024-05-01", "time": "09:30"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "subjectName, image",
		},
		{
			name:        "missing location",
			fields:      map[string]string{"name": "ねこ", "date": "2024-05-01", "time": "09:30"},
			image:       pngPhoto,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "location",
		},
		{
			name:        "non image upload",
			fields:      tokyoFields(),
			image:       []byte("GIF89a\x01\x00\x01\x00"),
			wantStatus:  http.StatusUnsupportedMediaType,
			wantMessage: "PNG or JPEG",
		},
		{
			name: "half a coordinate",
			fields: map[string]string{
				"name": "ねこ", "lat": "35.0", "date": "2024-05-01", "time": "09:30",
			},
			image:       pngPhoto,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "lat and lon",
		},
		{
			name: "negative max length",
			fields: map[string]string{
				"name": "ねこ", "location": "Tokyo", "date": "2024-05-01", "time": "09:30", "max_length": "-3",
			},
			image:       pngPhoto,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "max_length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations: a rejected request must not reach any collaborator.
			ts := newTestServer(t)

			status, body, _ := ts.do(t, entryForm(t, tt.fields, tt.image))
			assert.Equal(t, tt.wantStatus, status)

			var e errorBody
			require.NoError(t, json.Unmarshal(body, &e))
			assert.True(t, e.Error)
			assert.Contains(t, e.Message, tt.wantMessage)
		})
	}
}

func TestCreateEntryUnresolvedMapClick(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.EXPECT().Reverse(gomock.Any(), 35.0, 135.0).Return("", geocode.ErrNoResults)

	fields := map[string]string{"name": "ねこ", "lat": "35", "lon": "135", "date": "2024-05-01", "time": "09:30"}
	status, _, _ := ts.do(t, entryForm(t, fields, pngPhoto))
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/entries/pending", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSaveWithoutPending(t *testing.T) {
	ts := newTestServer(t)

	status, body, _ := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/entries/pending/save", nil))
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), zukan.ErrNoPendingEntry.Error())

	status, body, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":0,"entries":[]}`, string(body))

	status, _, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/entries/unknown/image", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReverseLocation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(ts *testServer)
		wantStatus int
		wantBody   string
	}{
		{
			name: "resolved",
			body: `{"lat":35.0,"lon":135.0}`,
			setup: func(ts *testServer) {
				ts.geocoder.EXPECT().Reverse(gomock.Any(), 35.0, 135.0).Return("日本、京都府", nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"address":"日本、京都府","lat":35,"lon":135}`,
		},
		{
			name:       "missing lon",
			body:       `{"lat":35.0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "latitude out of range",
			body:       `{"lat":95.0,"lon":0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "lookup failed",
			body: `{"lat":0,"lon":0}`,
			setup: func(ts *testServer) {
				ts.geocoder.EXPECT().Reverse(gomock.Any(), 0.0, 0.0).Return("", geocode.ErrNoResults)
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			if tt.setup != nil {
				tt.setup(ts)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/locations/reverse", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			status, body, _ := ts.do(t, req)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, string(body))
			}
		})
	}
}
