//go:build windows

package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"hostreport/internal/version"

	ico "github.com/Kodeworks/golang-image-ico"
	"github.com/getlantern/systray"
)

// startTray implements a Windows system tray icon with basic controls.
func startTray(app *App, srv *http.Server, done chan struct{}) {
	onReady := func() {
		var buf bytes.Buffer
		if err := encodeICO(&buf, trayImage()); err == nil {
			systray.SetIcon(buf.Bytes())
		}
		systray.SetTitle("hostreport")
		systray.SetTooltip(fmt.Sprintf("hostreport %s", version.String()))

		mOpen := systray.AddMenuItem("Open Dashboard", "Open the dashboard in a browser")
		mExport := systray.AddMenuItem("Export Report", "Write a CSV report for this machine")
		mLogs := systray.AddMenuItem("Open Logs Folder", "Open logs directory")
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Stop hostreport")

		go func() {
			for {
				select {
				case <-mOpen.ClickedCh:
					proto := "http"
					if app.cfg.TLS.Enabled {
						proto = "https"
					}
					url := fmt.Sprintf("%s://localhost:%d", proto, app.cfg.Port)
					app.logger.Write("Tray: Open Dashboard")
					_ = launchBrowser(url)
				case <-mExport.ClickedCh:
					label, err := os.Hostname()
					if err != nil || label == "" {
						label = "localhost"
					}
					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					path, err := runExport(ctx, newCollector(app.logger), label, "csv", app.paths.ExportsDir())
					cancel()
					if err != nil {
						app.logger.Write(fmt.Sprintf("Tray: export failed: %v", err))
						continue
					}
					app.logger.Write("Tray: exported " + path)
					_ = openPath(app.paths.ExportsDir())
				case <-mLogs.ClickedCh:
					app.logger.Write("Tray: Open Logs Folder")
					_ = openPath(app.paths.LogsDir())
				case <-mQuit.ClickedCh:
					app.logger.Write("Tray: Quit")
					systray.Quit()
					return
				}
			}
		}()
	}

	onExit := func() {
		close(done)
	}

	systray.Run(onReady, onExit)
}

func quitTray() {
	systray.Quit()
}

// trayImage draws a three-bar usage glyph.
func trayImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{0x18, 0x20, 0x2a, 0xff}}, image.Point{}, draw.Src)
	bar := &image.Uniform{C: color.RGBA{0x3b, 0x82, 0xf6, 0xff}}
	for i, h := range []int{12, 20, 26} {
		x := 4 + i*9
		draw.Draw(img, image.Rect(x, 30-h, x+6, 30), bar, image.Point{}, draw.Src)
	}
	return img
}

func encodeICO(buf *bytes.Buffer, img image.Image) error {
	return ico.Encode(buf, img)
}

func launchBrowser(url string) error {
	if runtime.GOOS != "windows" {
		return nil
	}
	cmd := exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	return cmd.Start()
}

func openPath(path string) error {
	if runtime.GOOS != "windows" {
		return nil
	}
	cmd := exec.Command("explorer", path)
	return cmd.Start()
}
