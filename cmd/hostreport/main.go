package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostreport/internal/config"
	"hostreport/internal/handlers"
	"hostreport/internal/integrations/discord"
	"hostreport/internal/middleware"
	"hostreport/internal/models"
	"hostreport/internal/report"
	"hostreport/internal/utils"
	"hostreport/internal/version"
	"hostreport/ui"

	"github.com/gin-gonic/gin"
)

type App struct {
	cfg         *config.Config
	paths       *utils.Paths
	logger      *utils.Logger
	reports     *handlers.ReportHandlers
	authService *middleware.AuthService
	notifier    *discord.Notifier
	wsHub       *middleware.Hub
	rateLimiter *middleware.RateLimiter
}

var app *App

func newApp(cfg *config.Config, c handlers.SnapshotCollector, logger *utils.Logger) *App {
	authService := middleware.NewAuthService(middleware.Credentials{
		Username:     cfg.Auth.Username,
		PasswordHash: cfg.Auth.PasswordHash,
		Secret:       cfg.Auth.Secret,
	})
	notifier := discord.NewNotifier(cfg.Discord.WebhookURL, cfg.Discord.Cooldown, logger)

	reports := handlers.NewReportHandlers(c, cfg.FilterThreshold, logger).WithAuth(authService.Enabled())
	if notifier.Enabled() {
		reports.WithAlerter(notifier)
	}

	return &App{
		cfg:         cfg,
		paths:       utils.NewPaths(cfg.RootPath),
		logger:      logger,
		reports:     reports,
		authService: authService,
		notifier:    notifier,
		wsHub:       middleware.NewHub(cfg.StreamInterval, reports.LivePayload, logger),
		rateLimiter: middleware.PerMinute(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
	}
}

func main() {
	if err := execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serve runs the dashboard until SIGINT/SIGTERM or a tray Quit.
func serve(cfg *config.Config) error {
	if spawnDetachedIfNeeded(cfg.Tray) {
		return nil
	}
	if cfg.Tray {
		hideConsoleWindow()
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	paths := utils.NewPaths(cfg.RootPath)
	if !paths.CheckRoot() {
		paths.DeployRoot(nil)
	}
	logger := utils.NewLogger(paths.LogFile())
	defer logger.Close()
	if cfg.Source != "" {
		logger.Write("Loaded configuration from " + cfg.Source)
	}

	app = newApp(cfg, newCollector(logger), logger)
	if app.authService.Enabled() {
		logger.Write("Dashboard authentication enabled for user " + cfg.Auth.Username)
	}
	if app.notifier.Enabled() {
		logger.Write("Discord allocation alerts enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.wsHub.Run(ctx)

	r, err := setupRouter()
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	srv := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		var err error
		if cfg.TLS.Enabled {
			log.Printf("Starting HTTPS server on %s (version %s)", srv.Addr, version.String())
			err = srv.ListenAndServeTLS(cfg.TLS.Cert, cfg.TLS.Key)
		} else {
			log.Printf("Starting server on %s (version %s)", srv.Addr, version.String())
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	trayDone := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cfg.Tray {
		go func() {
			<-quit
			quitTray()
		}()
		// systray owns the main goroutine until Quit.
		startTray(app, srv, trayDone)
	} else {
		<-quit
	}
	log.Println("Shutting down server...")
	logger.Write("Shutting down")

	cancel()
	app.rateLimiter.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}

func setupRouter() (*gin.Engine, error) {
	r := gin.New()

	r.Use(gin.Recovery())

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(app.rateLimiter.Middleware())

	tmpl, err := ui.Templates()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(ui.Static()))

	r.GET("/healthz", handlers.Healthz)
	r.GET("/version", handlers.Version)

	authHandlers := handlers.NewAuthHandlers(app.authService, app.logger)
	r.GET("/login", authHandlers.LoginGET)
	r.POST("/login", authHandlers.LoginPOST)
	r.GET("/logout", authHandlers.Logout)
	r.POST("/api/login", authHandlers.APILogin)

	api := r.Group("/api")
	api.Use(app.authService.RequireAPIAuth())
	{
		api.GET("/report", app.reports.APIReport)
		api.GET("/report/filtered", app.reports.APIFiltered)
	}

	protected := r.Group("/")
	protected.Use(app.authService.RequireAuth())
	{
		protected.GET("/", app.reports.Dashboard)
		protected.GET("/report/download", app.reports.Download)
		protected.GET("/report/chart", app.reports.Chart)
		protected.GET("/report/chart.png", app.reports.ChartPNG)
		protected.GET("/ws", app.wsHub.HandleWebSocket())
	}

	return r, nil
}

// runExport collects once and writes the report into dir, returning the
// written path.
func runExport(ctx context.Context, c handlers.SnapshotCollector, label, format, dir string) (string, error) {
	snap, err := c.Collect(ctx, label)
	if err != nil {
		return "", err
	}
	if !snap.DiskAvailable() {
		log.Println(models.NoDiskNotice.Message)
	}

	var buf bytes.Buffer
	switch format {
	case "parquet":
		err = report.WriteParquet(&buf, snap)
	case "csv", "":
		format = "csv"
		err = report.WriteCSV(&buf, snap)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path, err := utils.SecureJoin(dir, report.Filename(label, format))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
