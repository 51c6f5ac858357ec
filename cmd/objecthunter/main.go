package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/objecthunter/internal/app"
	"github.com/ayusman/objecthunter/internal/capture"
	"github.com/ayusman/objecthunter/internal/config"
	"github.com/ayusman/objecthunter/internal/detector"
	"github.com/ayusman/objecthunter/internal/emitter"
	"github.com/ayusman/objecthunter/internal/plugin"
	"github.com/ayusman/objecthunter/internal/server"
	"github.com/ayusman/objecthunter/internal/store"
	"github.com/ayusman/objecthunter/internal/surface"
	"github.com/ayusman/objecthunter/internal/tray"
	"github.com/ayusman/objecthunter/testdata"
)

const keyEscape = 27

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default ~/.objecthunter/config.yaml)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	cameraID := flag.Int("camera", -1, "Camera device index (overrides config)")
	showWindow := flag.Bool("window", true, "Show the game in a native window")
	showTray := flag.Bool("tray", false, "Show a system tray menu instead of the native window")
	mock := flag.Bool("mock", false, "Use a synthetic camera and the mock recognizer")
	flag.Parse()

	fmt.Println("Object Hunter - Find It With Your Webcam")

	dataDir, err := dataDir()
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if *configPath == "" {
		*configPath = filepath.Join(dataDir, "config.yaml")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *cameraID >= 0 {
		cfg.Camera.Device = *cameraID
	}
	if *mock {
		cfg.Detection.Backend = "mock"
	}

	rules, err := cfg.Rules()
	if err != nil {
		log.Fatalf("Invalid game config: %v", err)
	}

	// Initialize the store
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "objecthunter.db")
	}
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	detCfg := detectorConfig(cfg)
	det, err := detector.New(detCfg)
	if err != nil {
		log.Printf("Recognizer unavailable (%v), falling back to mock detector", err)
		det = detector.NewMockDetector()
	}

	cam, err := newCamera(cfg, *mock)
	if err != nil {
		log.Fatalf("Failed to set up camera: %v", err)
	}

	dispatcher := newDispatcher(cfg, dataDir)
	if dispatcher != nil {
		defer dispatcher.Close()
	}

	var em emitter.Emitter
	if cfg.MQTT.Enabled {
		mqttEmitter := emitter.NewMQTTEmitter(emitter.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := mqttEmitter.Connect(ctx); err != nil {
			log.Printf("MQTT disabled: %v", err)
		} else {
			em = mqttEmitter
			defer mqttEmitter.Disconnect()
		}
		cancel()
	}

	player := cfg.Store.Player
	if saved, err := st.Settings().Get(store.SettingPlayer); err == nil && saved != "" {
		player = saved
	}

	surf := surface.New()
	game, err := app.New(app.Config{
		Rules:       rules,
		Camera:      cam,
		Detector:    det,
		Detection:   detCfg,
		Surface:     surf,
		Store:       st,
		Player:      player,
		Plugins:     dispatcher,
		Emitter:     em,
		PromptStyle: cfg.Prompts.Style,
		FrameRate:   cfg.Game.FrameRate,
		Width:       cfg.Camera.Width,
		Height:      cfg.Camera.Height,
	})
	if err != nil {
		log.Fatalf("Failed to create game: %v", err)
	}

	// Find web directory
	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Surface:   surf,
	})
	httpServer := srv.HTTPServer(cfg.Server.Addr)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	}()

	if err := game.Start(); err != nil {
		log.Fatalf("Failed to start game: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	switch {
	case *showTray:
		runTray(game, surf, sigCh, gameURL(cfg.Server.Addr))
	case *showWindow:
		runWindow(game, surf, sigCh)
	default:
		select {
		case <-sigCh:
		case <-game.Done():
		}
	}

	fmt.Println("Shutting down...")
	game.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// dataDir returns ~/.objecthunter, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, ".objecthunter")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func detectorConfig(cfg *config.Config) detector.Config {
	d := cfg.Detection
	return detector.Config{
		Backend:       d.Backend,
		ModelPath:     d.ModelPath,
		LabelsPath:    d.LabelsPath,
		Python:        d.Python,
		ServiceScript: d.ServiceScript,
		IdleTimeout:   d.IdleTimeout,
		InputSize:     d.InputSize,
		NMSThreshold:  d.NMSThreshold,
		MinConfidence: d.MinConfidence,
		MaxResults:    d.MaxResults,
		Cooldown:      d.Cooldown,
	}
}

func newCamera(cfg *config.Config, mock bool) (capture.Camera, error) {
	if mock {
		frames, err := testdata.SceneFrames(cfg.Camera.Width, cfg.Camera.Height, 90)
		if err != nil {
			return nil, err
		}
		log.Println("Using synthetic camera")
		return capture.NewMockCamera(frames, true), nil
	}
	return capture.NewCamera(capture.Config{
		DeviceID: cfg.Camera.Device,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
		Mirror:   cfg.Camera.Mirror,
	}), nil
}

// newDispatcher discovers plugins and returns a dispatcher, or nil when none are installed.
func newDispatcher(cfg *config.Config, dataDir string) *plugin.Dispatcher {
	dir := cfg.Plugins.Dir
	if !filepath.IsAbs(dir) {
		if _, err := os.Stat(dir); err != nil {
			dir = filepath.Join(dataDir, dir)
		}
	}

	manager := plugin.NewManager(dir)
	if err := manager.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
		return nil
	}
	plugins := manager.List()
	if len(plugins) == 0 {
		return nil
	}
	for _, p := range plugins {
		log.Printf("Loaded plugin %s %s (%s)", p.Manifest.Name, p.Manifest.Version, strings.Join(p.Manifest.Events, ", "))
	}

	settings, err := cfg.PluginSettings()
	if err != nil {
		log.Printf("Ignoring plugin settings: %v", err)
		settings = nil
	}
	return plugin.NewDispatcher(manager, plugin.NewExecutor(int(cfg.Plugins.Timeout.Milliseconds())), settings)
}

// runWindow shows the rendered game in a native window until the player exits, the window
// sees ESC, or a signal arrives. Pointer input comes from the browser display.
func runWindow(game *app.App, surf *surface.Surface, sigCh <-chan os.Signal) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	window := gocv.NewWindow("Object Hunter")
	defer window.Close()

	var shown uint64
	for {
		select {
		case <-sigCh:
			return
		case <-game.Done():
			return
		default:
		}

		if frame, seq := surf.Frame(); seq != shown && len(frame) > 0 {
			mat, err := gocv.IMDecode(frame, gocv.IMReadColor)
			if err == nil {
				window.IMShow(mat)
				mat.Close()
			}
			shown = seq
		}
		if window.WaitKey(10) == keyEscape {
			surf.RequestExit()
		}
	}
}

// runTray blocks in the tray menu. Quitting from the tray, a signal, or the player exiting
// the game all end it.
func runTray(game *app.App, surf *surface.Surface, sigCh <-chan os.Signal, url string) {
	t := tray.New()
	t.OnToggle(game.SetEnabled)
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})
	t.OnQuit(surf.RequestExit)
	game.OnState(t.SetStatus)

	go func() {
		select {
		case <-sigCh:
		case <-game.Done():
		}
		t.Quit()
	}()

	t.Run()
}

func gameURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.objecthunter/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".objecthunter", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
