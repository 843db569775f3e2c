//go:build !windows

package main

import (
	"log"
	"net/http"
	"sync"
)

var (
	trayQuit     = make(chan struct{})
	trayQuitOnce sync.Once
)

// startTray has no icon outside Windows; it blocks until quitTray.
func startTray(app *App, srv *http.Server, done chan struct{}) {
	log.Println("System tray is only available on Windows; running headless")
	<-trayQuit
	close(done)
}

func quitTray() {
	trayQuitOnce.Do(func() { close(trayQuit) })
}
