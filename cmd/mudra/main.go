package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/driver"
	"github.com/ayusman/mudra/internal/mouse"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (default ~/.mudra/config.json)")
	addr := flag.String("addr", "", "HTTP listen address, overrides the config")
	camera := flag.String("camera", "", "camera device index or video file, overrides the config")
	cascade := flag.String("cascade", "", "face cascade file, overrides the config")
	driverName := flag.String("driver", "", "cursor driver: robotgo, recorder or an installed driver name")
	train := flag.Bool("train", false, "train a skin model from the camera before tracking")
	dryRun := flag.Bool("dry-run", false, "track without moving the cursor")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	listDrivers := flag.Bool("list-drivers", false, "list installed cursor drivers and exit")
	flag.Parse()

	fmt.Println("Mudra - Hand Cursor")

	dataDir, err := config.DataDir()
	if err != nil {
		log.Fatalf("Failed to locate data directory: %v", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	path := *configPath
	if path == "" {
		path = filepath.Join(dataDir, "config.json")
	}
	cfg, err := config.Load(path, dataDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *camera != "" {
		cfg.Camera.Source = *camera
	}
	if *cascade != "" {
		cfg.Detector.Path = *cascade
	}
	if *driverName != "" {
		cfg.Driver.Name = *driverName
	}
	if *dryRun {
		cfg.Driver.Name = config.DriverRecorder
	}

	if *listDrivers {
		printDrivers(cfg.Driver.Dir)
		return
	}

	det, err := newDetector(cfg)
	if err != nil {
		log.Fatalf("Failed to load face detector: %v", err)
	}

	drv, err := newDriver(&cfg)
	if err != nil {
		det.Close()
		log.Fatalf("Failed to set up cursor driver: %v", err)
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		det.Close()
		drv.Close()
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	a, err := app.New(app.Options{
		Config:   cfg,
		Camera:   capture.NewCamera(cfg.Camera),
		Detector: det,
		Driver:   drv,
		Store:    st,
	})
	if err != nil {
		det.Close()
		drv.Close()
		log.Fatalf("Failed to initialize tracker: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *train || !a.Trained() {
		fmt.Println("Training skin model: face the camera and keep your hands down")
		model, err := a.Train(ctx, cfg.Pipeline.TrainFrames)
		if err != nil {
			log.Fatalf("Training failed: %v", err)
		}
		fmt.Printf("Trained skin model %s\n", model.ID)
	}

	if err := a.Start(ctx); err != nil {
		log.Fatalf("Failed to start tracking: %v", err)
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(dataDir)
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Pipeline:  a,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	if *noTray {
		<-ctx.Done()
		fmt.Println("Shutting down")
		return
	}

	runTray(ctx, a, cfg.Server.Addr)
}

// runTray blocks on the tray event loop until Quit is clicked or ctx ends.
func runTray(ctx context.Context, a *app.App, addr string) {
	t := tray.New()
	t.SetEnabled(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnTrain(func() {
		if _, err := a.Train(ctx, 0); err != nil {
			log.Printf("Training failed: %v", err)
		}
	})
	t.OnSettings(func() {
		openBrowser(settingsURL(addr))
	})

	updates, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go t.Follow(updates)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

func newDetector(cfg config.Config) (detector.Detector, error) {
	// The tracker applies DetectScaleWidth, including saved settings.
	dcfg := detector.DefaultConfig()
	dcfg.MinQuality = cfg.Detector.MinQuality

	switch cfg.Detector.Kind {
	case config.DetectorPigo:
		return detector.NewPigo(cfg.Detector.Path, dcfg)
	default:
		return detector.NewCascade(cfg.Detector.Path, dcfg)
	}
}

// newDriver builds the configured cursor driver. The robotgo driver also
// sizes the screen rectangle to the main display.
func newDriver(cfg *config.Config) (mouse.Driver, error) {
	switch cfg.Driver.Name {
	case config.DriverRecorder:
		log.Println("Dry run: cursor states are recorded, not applied")
		return mouse.NewRecorder(), nil
	case config.DriverRobotgo, "":
		if size := mouse.ScreenSize(); size.X > 0 && size.Y > 0 {
			cfg.Tracker.ScreenRect = image.Rectangle{Max: size}
		}
		return mouse.NewRobotgo(), nil
	}

	m := driver.NewManager(cfg.Driver.Dir)
	if err := m.Discover(); err != nil {
		return nil, err
	}
	d, err := m.Get(cfg.Driver.Name)
	if err != nil {
		return nil, err
	}
	log.Printf("Using driver %s %s", d.Manifest.Name, d.Manifest.Version)
	return driver.NewProcess(d, cfg.Driver.GetTimeout()), nil
}

func printDrivers(dir string) {
	m := driver.NewManager(dir)
	if err := m.Discover(); err != nil {
		log.Fatalf("Failed to discover drivers: %v", err)
	}
	fmt.Printf("Built-in: %s, %s\n", config.DriverRobotgo, config.DriverRecorder)
	for _, d := range m.List() {
		fmt.Printf("%s %s: %s\n", d.Manifest.Name, d.Manifest.Version, d.Manifest.Description)
	}
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
		return
	}
	go cmd.Wait()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
