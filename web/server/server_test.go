package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/df07/go-whitted-raytracer/pkg/config"
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/publish"
)

// tinyScene is an 8x6 frame looking at a red sphere centred on the view axis
const tinyScene = `{
	"name": "Tiny",
	"group": "Test Scenes",
	"width": 8,
	"height": 6,
	"focalLength": 200,
	"objects": [
		{"type": "sphere", "center": [0, 0, 0], "radius": 150, "controlled": true,
		 "material": {"color": "#ff0000", "diffuse": 1}}
	],
	"lights": [{"type": "directional", "direction": [0, 0, -1]}]
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tiny.json"), []byte(tinyScene), 0o644); err != nil {
		t.Fatalf("Failed to write scene: %v", err)
	}
	cfg := config.Default()
	cfg.ScenesDir = dir
	return NewServer(cfg, nil)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHandleHealth(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body)
	}
}

func TestHandleScenes(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/scenes")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Groups []struct {
			Name   string `json:"name"`
			Scenes []struct {
				ID string `json:"id"`
			} `json:"scenes"`
		} `json:"groups"`
	}
	decodeJSON(t, rec, &body)

	if len(body.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(body.Groups))
	}
	if body.Groups[0].Name != "Built-in Scenes" {
		t.Errorf("Expected built-in group first, got %q", body.Groups[0].Name)
	}
	if body.Groups[1].Name != "Test Scenes" || body.Groups[1].Scenes[0].ID != "file:tiny" {
		t.Errorf("Expected file:tiny in Test Scenes, got %+v", body.Groups[1])
	}
}

func TestHandleSceneConfig(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		width  float64
	}{
		{"default scene", "/api/scene-config", http.StatusOK, 640},
		{"scene file", "/api/scene-config?scene=file:tiny", http.StatusOK, 8},
		{"unknown scene", "/api/scene-config?scene=nonexistent", http.StatusBadRequest, 0},
		{"missing file", "/api/scene-config?scene=file:missing", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(t), tt.target)
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Defaults map[string]interface{} `json:"defaults"`
			}
			decodeJSON(t, rec, &body)
			if body.Defaults["width"] != tt.width {
				t.Errorf("Expected width %v, got %v", tt.width, body.Defaults["width"])
			}
		})
	}
}

func TestHandleRender(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		contentType   string
		width, height int
	}{
		{"png", "scene=file:tiny", "image/png", 8, 6},
		{"png upscaled", "scene=file:tiny&scale=2", "image/png", 16, 12},
		{"png resized", "scene=file:tiny&width=4&height=2", "image/png", 4, 2},
		{"bmp", "scene=file:tiny&format=bmp", "image/bmp", 8, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(t), "/api/render?"+tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Expected content type %s, got %s", tt.contentType, got)
			}
			if rec.Header().Get("X-Render-Scene") != "file:tiny" {
				t.Errorf("Expected scene header file:tiny, got %q", rec.Header().Get("X-Render-Scene"))
			}
			hits, _ := strconv.Atoi(rec.Header().Get("X-Render-Hits"))
			if hits == 0 {
				t.Error("Expected at least one pixel to hit the sphere")
			}

			if tt.contentType == "image/bmp" {
				if !bytes.HasPrefix(rec.Body.Bytes(), []byte("BM")) {
					t.Error("Expected BMP signature")
				}
				return
			}
			img, err := png.Decode(rec.Body)
			if err != nil {
				t.Fatalf("Failed to decode PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.width || b.Dy() != tt.height {
				t.Errorf("Expected %dx%d image, got %dx%d", tt.width, tt.height, b.Dx(), b.Dy())
			}
		})
	}
}

func TestHandleRender_CenterPixel(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/render?scene=file:tiny")
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}

	// Head-on: the directional light faces the sphere, so shade is 1
	r, g, b, _ := img.At(4, 3).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("Expected pure red at the center, got (%d, %d, %d)", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = img.At(0, 0).RGBA()
	if r>>8 != 128 || g>>8 != 128 || b>>8 != 128 {
		t.Errorf("Expected background at the corner, got (%d, %d, %d)", r>>8, g>>8, b>>8)
	}
}

func TestHandleRender_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"zero width", "width=0"},
		{"huge height", "height=5000"},
		{"bad scale", "scale=abc"},
		{"unknown format", "format=gif"},
		{"bad focal", "focal=-1"},
		{"publish without publisher", "publish=true"},
		{"unknown scene", "scene=nonexistent"},
		{"traversal", "scene=file:../tiny"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(t), "/api/render?"+tt.query)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var body map[string]string
			decodeJSON(t, rec, &body)
			if body["error"] == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestHandleInspect(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/inspect?scene=file:tiny&x=4&y=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var hit InspectResponse
	decodeJSON(t, rec, &hit)
	if !hit.Hit || hit.GeometryType != "sphere" {
		t.Fatalf("Expected a sphere hit, got %+v", hit)
	}
	if math.Abs(hit.Distance-(16000-150)) > 1e-6 {
		t.Errorf("Expected distance 15850, got %v", hit.Distance)
	}
	if hit.Normal != [3]float64{0, 0, -1} {
		t.Errorf("Expected normal (0, 0, -1), got %v", hit.Normal)
	}
	if hit.Color != "#ff0000" {
		t.Errorf("Expected red, got %s", hit.Color)
	}

	rec = get(t, s, "/api/inspect?x=0&y=0")
	var miss InspectResponse
	decodeJSON(t, rec, &miss)
	if miss.Hit || miss.Color != "#808080" {
		t.Errorf("Expected a background miss, got %+v", miss)
	}

	for _, query := range []string{"x=8&y=0", "x=0&y=-1", "x=a&y=0", "x=0"} {
		if rec := get(t, s, "/api/inspect?"+query); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestHandleKey(t *testing.T) {
	s := newTestServer(t)

	steps := []struct {
		key    string
		action string
		target [3]float64
	}{
		{"w", "moved", [3]float64{20, 0, 0}},
		{"d", "moved", [3]float64{20, 20, 0}},
		{"x", "none", [3]float64{20, 20, 0}},
		{"u", "render", [3]float64{20, 20, 0}},
		{"q", "quit", [3]float64{0, 0, 0}},
	}

	for _, step := range steps {
		rec := get(t, s, "/api/key?scene=file:tiny&key="+step.key)
		if rec.Code != http.StatusOK {
			t.Fatalf("key %s: expected 200, got %d: %s", step.key, rec.Code, rec.Body.String())
		}
		var resp KeyResponse
		decodeJSON(t, rec, &resp)
		if resp.Action != step.action {
			t.Errorf("key %s: expected action %s, got %s", step.key, step.action, resp.Action)
		}
		if resp.Target == nil || *resp.Target != step.target {
			t.Errorf("key %s: expected target %v, got %v", step.key, step.target, resp.Target)
		}
		if step.action == "render" && (resp.Stats == nil || resp.Stats.Width != 8 || resp.Stats.Hits == 0) {
			t.Errorf("key %s: expected render stats for an 8-wide frame, got %+v", step.key, resp.Stats)
		}
	}

	for _, key := range []string{"", "wd"} {
		if rec := get(t, s, "/api/key?key="+key); rec.Code != http.StatusBadRequest {
			t.Errorf("key %q: expected 400, got %d", key, rec.Code)
		}
	}
}

func TestHandleKey_MovesRenderedSphere(t *testing.T) {
	s := newTestServer(t)

	// eight steps of +Y move the sphere entirely above the view axis
	for i := 0; i < 8; i++ {
		get(t, s, "/api/key?scene=file:tiny&key=d")
	}
	rec := get(t, s, "/api/inspect?x=4&y=3")
	var resp InspectResponse
	decodeJSON(t, rec, &resp)
	if resp.Hit {
		t.Errorf("Expected the moved sphere to leave the center pixel, got %+v", resp)
	}
}

func TestHandleToggle(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/toggle?scene=file:tiny&shadows=false")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	decodeJSON(t, rec, &body)
	if body["shadows"] != false || body["specular"] != true {
		t.Errorf("Expected shadows off and specular unchanged, got %v", body)
	}
	if s.scene.Shadows() {
		t.Error("Expected live scene shadows to be disabled")
	}

	rec = get(t, s, "/api/toggle?specular=maybe")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid bool, got %d", rec.Code)
	}
}

func TestHandleConsole(t *testing.T) {
	console := NewConsoleHandler(10, slog.LevelInfo, nil)
	core.SetLogger(slog.New(console))
	defer core.SetLogger(nil)

	s := newTestServer(t)
	s.console = console
	get(t, s, "/api/render?scene=file:tiny")

	rec := get(t, s, "/api/console")
	var messages []ConsoleMessage
	decodeJSON(t, rec, &messages)

	var rendered bool
	for _, m := range messages {
		if strings.HasPrefix(m.Message, "frame rendered") {
			rendered = true
		}
	}
	if !rendered {
		t.Errorf("Expected a frame rendered message, got %+v", messages)
	}

	rec = get(t, newTestServer(t), "/api/console")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Expected an empty list without a console, got %s", rec.Body.String())
	}
}

// fakeS3 records uploaded object keys
type fakeS3 struct {
	s3iface.S3API
	keys []string
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if _, err := io.Copy(io.Discard, in.Body); err != nil {
		return nil, err
	}
	f.keys = append(f.keys, aws.StringValue(in.Key))
	return &s3.PutObjectOutput{}, nil
}

func TestHandleRender_Publish(t *testing.T) {
	client := &fakeS3{}
	s := newTestServer(t)
	s.SetPublisher(publish.NewS3Publisher(client, "renders", "web", "https://cdn.example.com"))

	rec := get(t, s, "/api/render?scene=file:tiny&publish=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(client.keys) != 2 {
		t.Fatalf("Expected frame and thumbnail uploads, got %v", client.keys)
	}
	if !strings.HasPrefix(client.keys[0], "web/file-tiny/") {
		t.Errorf("Expected key under web/file-tiny/, got %s", client.keys[0])
	}
	if url := rec.Header().Get("X-Render-URL"); !strings.HasPrefix(url, "https://cdn.example.com/web/file-tiny/") {
		t.Errorf("Expected CDN URL, got %q", url)
	}
}
