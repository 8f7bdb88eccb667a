package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/df07/go-whitted-raytracer/pkg/config"
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/frame"
	"github.com/df07/go-whitted-raytracer/pkg/input"
	"github.com/df07/go-whitted-raytracer/pkg/loaders"
	"github.com/df07/go-whitted-raytracer/pkg/publish"
	"github.com/df07/go-whitted-raytracer/pkg/renderer"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// Request limits shared by the render, inspect and scene-config endpoints
const (
	MinSize     = 1
	MaxSize     = 2000
	MinFocal    = 1.0
	MaxFocal    = 1e6
	MaxScale    = 8
	DefaultName = "default"
)

// Server handles web requests for the raytracer. It owns one live session:
// the current scene, its raytracer, the frame it renders into and the
// controller bound to its controlled sphere. Every request that touches the
// session holds mu.
type Server struct {
	cfg       config.Config
	console   *ConsoleHandler
	publisher *publish.S3Publisher

	mu         sync.Mutex
	sceneName  string
	scene      *scene.Scene
	tracer     *renderer.Raytracer
	frame      *frame.Frame
	controller *input.Controller
}

// NewServer creates a new web server. console may be nil, in which case
// /api/console always returns an empty list.
func NewServer(cfg config.Config, console *ConsoleHandler) *Server {
	return &Server{cfg: cfg, console: console}
}

// SetPublisher enables uploading of rendered frames with ?publish=true
func (s *Server) SetPublisher(p *publish.S3Publisher) {
	s.publisher = p
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/key", s.handleKey)
	mux.HandleFunc("/api/toggle", s.handleToggle)
	mux.HandleFunc("/api/console", s.handleConsole)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	core.Logger().Info("starting web server", "url", "http://localhost"+addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes and the scene files on disk
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := scene.ListAllScenes(s.cfg.ScenesDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = DefaultName
	}

	sceneObj, err := s.createScene(sceneName)
	if err != nil {
		writeSceneError(w, sceneName, err)
		return
	}

	opts := sceneObj.Options
	response := map[string]interface{}{
		"scene": sceneName,
		"defaults": map[string]interface{}{
			"width":       opts.Width,
			"height":      opts.Height,
			"focalLength": opts.FocalLength,
			"eye":         [3]float64{opts.Eye.X, opts.Eye.Y, opts.Eye.Z},
			"background":  hexColor(opts.Background),
			"shadows":     sceneObj.Shadows(),
			"specular":    sceneObj.Specular(),
			"primitives":  sceneObj.GetPrimitiveCount(),
			"lights":      len(sceneObj.Lights()),
			"controlled":  sceneObj.Controlled != nil,
		},
		"limits": map[string]interface{}{
			"width":       map[string]int{"min": MinSize, "max": MaxSize},
			"height":      map[string]int{"min": MinSize, "max": MaxSize},
			"scale":       map[string]int{"min": 1, "max": MaxScale},
			"focalLength": map[string]float64{"min": MinFocal, "max": MaxFocal},
		},
	}
	writeJSON(w, http.StatusOK, response)
}

// handleToggle switches shadows and specular highlights on the live scene
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureSession(values.Get("scene")); err != nil {
		writeSceneError(w, values.Get("scene"), err)
		return
	}

	shadows, err := parseBoolParam(values, "shadows", s.scene.Shadows())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	specular, err := parseBoolParam(values, "specular", s.scene.Specular())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.scene.SetShadows(shadows)
	s.scene.SetSpecular(specular)
	core.Logger().Info("scene toggles changed", "scene", s.sceneName, "shadows", shadows, "specular", specular)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scene":    s.sceneName,
		"shadows":  shadows,
		"specular": specular,
	})
}

// handleConsole returns the recent log messages
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	messages := []ConsoleMessage{}
	if s.console != nil {
		messages = append(messages, s.console.Messages()...)
	}
	writeJSON(w, http.StatusOK, messages)
}

// createScene creates a scene from a built-in name or a file:<name> ID.
// Built-in scenes take their frame settings from the configuration; scene
// files carry their own.
func (s *Server) createScene(sceneName string) (*scene.Scene, error) {
	sceneObj, err := loaders.Resolve(s.cfg.ScenesDir, sceneName)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(sceneName, loaders.FilePrefix) {
		sceneObj.Options.SetFrame(s.cfg.Width, s.cfg.Height, s.cfg.FocalLength)
	}
	return sceneObj, nil
}

// ensureSession makes sceneName the live scene, loading it if it is not
// already live. An empty name keeps the current scene, or loads the default
// scene when there is none. The caller holds mu.
func (s *Server) ensureSession(sceneName string) error {
	if sceneName == "" {
		if s.scene != nil {
			return nil
		}
		sceneName = DefaultName
	}
	if s.scene != nil && sceneName == s.sceneName {
		return nil
	}

	sceneObj, err := s.createScene(sceneName)
	if err != nil {
		return err
	}
	s.sceneName = sceneName
	s.scene = sceneObj
	s.tracer = renderer.NewRaytracer(sceneObj, sceneObj.Options.Width, sceneObj.Options.Height)
	s.frame = nil
	s.controller = input.NewController(sceneObj.Controlled)
	core.Logger().Info("scene loaded", "scene", sceneName, "primitives", sceneObj.GetPrimitiveCount())
	return nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseBoolParam parses a boolean parameter from URL query
func parseBoolParam(values url.Values, key string, defaultValue bool) (bool, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		core.Logger().Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSceneError reports unknown or missing scenes as bad requests and anything else
// as a server error
func writeSceneError(w http.ResponseWriter, sceneName string, err error) {
	if errors.Is(err, scene.ErrUnknownScene) || errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusBadRequest, "Unknown scene: "+sceneName)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
