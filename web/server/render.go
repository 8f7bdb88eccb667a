package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/frame"
	"github.com/df07/go-whitted-raytracer/pkg/input"
	"github.com/df07/go-whitted-raytracer/pkg/publish"
	"github.com/df07/go-whitted-raytracer/pkg/renderer"
)

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene       string  `json:"scene"`       // Scene ID; empty keeps the live scene
	Width       int     `json:"width"`       // Frame width; 0 uses the scene's width
	Height      int     `json:"height"`      // Frame height; 0 uses the scene's height
	FocalLength float64 `json:"focalLength"` // 0 keeps the scene's focal length
	Format      string  `json:"format"`      // png, bmp or jpg
	Scale       int     `json:"scale"`       // Nearest-neighbour upscale factor
	Publish     bool    `json:"publish"`     // Upload the frame after rendering
}

// Stats represents render statistics
type Stats struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Hits        int     `json:"hits"`
	Faults      int     `json:"faults"`
	Rays        int     `json:"rays"`
	MaxDepth    int     `json:"maxDepth"`
	Reflections int     `json:"reflections"`
	HitRatio    float64 `json:"hitRatio"`
	ElapsedMs   int64   `json:"elapsedMs"`
}

// KeyResponse is the result of a key press on the live scene
type KeyResponse struct {
	Key    string      `json:"key"`
	Action string      `json:"action"`
	Target *[3]float64 `json:"target,omitempty"` // Controlled sphere center after the key
	Stats  *Stats      `json:"stats,omitempty"`  // Present when the key rendered a frame
}

var renderFormats = map[string]bool{"png": true, "bmp": true, "jpg": true}

// parseRenderRequest parses and validates render parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	values := r.URL.Query()
	req := &RenderRequest{
		Scene:  values.Get("scene"),
		Format: strings.ToLower(values.Get("format")),
	}
	if req.Format == "" {
		req.Format = "png"
	}
	if !renderFormats[req.Format] {
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}

	var err error
	if req.Width, err = parseIntParam(values, "width", 0, MinSize, MaxSize); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(values, "height", 0, MinSize, MaxSize); err != nil {
		return nil, err
	}
	if req.FocalLength, err = parseFloatParam(values, "focal", 0, MinFocal, MaxFocal); err != nil {
		return nil, err
	}
	if req.Scale, err = parseIntParam(values, "scale", 1, 1, MaxScale); err != nil {
		return nil, err
	}
	if req.Publish, err = parseBoolParam(values, "publish", false); err != nil {
		return nil, err
	}
	if req.Publish && s.publisher == nil {
		return nil, fmt.Errorf("publishing is not configured")
	}
	return req, nil
}

// handleRender renders the live scene and returns the encoded frame. Render
// statistics are reported in X-Render-* headers.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSession(req.Scene); err != nil {
		writeSceneError(w, req.Scene, err)
		return
	}

	stats, err := s.renderLocked(req.Width, req.Height, req.FocalLength)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if req.Format == "bmp" && req.Scale == 1 {
		err = s.frame.WriteBMP(&buf)
	} else {
		err = renderer.EncodeImage(&buf, s.frame.Image(), req.Format, req.Scale)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Publish {
		upload, err := s.publisher.Publish(r.Context(), publishName(s.sceneName), s.frame.Image())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		w.Header().Set("X-Render-URL", upload.URL)
	}

	h := w.Header()
	h.Set("Content-Type", publish.ContentType(req.Format))
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("X-Render-Scene", s.sceneName)
	h.Set("X-Render-Hits", strconv.Itoa(stats.Hits))
	h.Set("X-Render-Faults", strconv.Itoa(stats.Faults))
	h.Set("X-Render-Rays", strconv.Itoa(stats.Trace.Calls))
	h.Set("X-Render-Elapsed-Ms", strconv.FormatInt(stats.Duration.Milliseconds(), 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		core.Logger().Warn("failed to write frame", "error", err)
	}
}

// handleKey applies one controller key to the live scene. The render key
// renders the frame at its current size; quit reloads the scene.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	key := values.Get("key")
	if utf8.RuneCountInString(key) != 1 {
		writeError(w, http.StatusBadRequest, "key must be a single character")
		return
	}
	k, _ := utf8.DecodeRuneInString(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSession(values.Get("scene")); err != nil {
		writeSceneError(w, values.Get("scene"), err)
		return
	}

	action := s.controller.HandleKey(k)
	response := KeyResponse{Key: key, Action: action.String()}

	switch action {
	case input.ActionRender:
		width, height := 0, 0
		if s.frame != nil {
			width, height = s.frame.Width(), s.frame.Height()
		}
		stats, err := s.renderLocked(width, height, 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		response.Stats = toStats(stats)
	case input.ActionQuit:
		name := s.sceneName
		s.scene = nil
		if err := s.ensureSession(name); err != nil {
			writeSceneError(w, name, err)
			return
		}
	}

	if target := s.controller.Target(); target != nil {
		c := target.Center
		response.Target = &[3]float64{c.X, c.Y, c.Z}
	}
	writeJSON(w, http.StatusOK, response)
}

// renderLocked renders the live scene into the live frame, rebuilding the
// camera and frame when the size or focal length changes. Zero values keep
// the scene's settings. The caller holds mu.
func (s *Server) renderLocked(width, height int, focal float64) (renderer.RenderStats, error) {
	if width == 0 {
		width = s.scene.Options.Width
	}
	if height == 0 {
		height = s.scene.Options.Height
	}

	camera := s.tracer.Camera()
	resize := camera.Width() != width || camera.Height() != height
	if focal > 0 && focal != s.scene.Options.FocalLength {
		s.scene.Options.FocalLength = focal
		resize = true
	}
	if resize {
		s.tracer.Resize(width, height)
	}
	if s.frame == nil || s.frame.Width() != width || s.frame.Height() != height {
		s.frame = frame.New(width, height)
	}

	stats, err := s.tracer.Render(s.frame)
	if err != nil {
		return stats, fmt.Errorf("failed to render %s: %w", s.sceneName, err)
	}
	return stats, nil
}

func toStats(rs renderer.RenderStats) *Stats {
	return &Stats{
		Width:       rs.Width,
		Height:      rs.Height,
		Hits:        rs.Hits,
		Faults:      rs.Faults,
		Rays:        rs.Trace.Calls,
		MaxDepth:    rs.Trace.MaxDepth,
		Reflections: rs.Trace.Reflections,
		HitRatio:    rs.HitRatio(),
		ElapsedMs:   rs.Duration.Milliseconds(),
	}
}

// publishName turns a scene ID into an object key segment
func publishName(sceneName string) string {
	return strings.ReplaceAll(sceneName, ":", "-")
}
