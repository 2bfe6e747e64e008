//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

var (
	shcore = windows.NewLazySystemDLL("Shcore.dll")
	user32 = windows.NewLazySystemDLL("user32.dll")
)

// enableDPIAwareness asks for per-monitor DPI awareness so captured pixels
// match the physical screen.
func enableDPIAwareness() {
	const processPerMonitorDPIAware = 2
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			slog.Debug("DPI: per-monitor awareness enabled")
		} else {
			slog.Debug("DPI: per-monitor awareness failed", "code", ret)
		}
		return
	}

	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		slog.Debug("DPI: no awareness API available")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
		slog.Debug("DPI: system awareness failed")
	}
}

func logMonitorConfiguration() {
	const (
		smCXScreen        = 0
		smCYScreen        = 1
		smXVirtualScreen  = 76
		smYVirtualScreen  = 77
		smCXVirtualScreen = 78
		smCYVirtualScreen = 79
		smCMonitors       = 80
	)
	getSystemMetrics := user32.NewProc("GetSystemMetrics")
	metric := func(i int) int {
		v, _, _ := getSystemMetrics.Call(uintptr(i))
		return int(int32(v))
	}
	slog.Debug("Monitors",
		"count", metric(smCMonitors),
		"virtual_x", metric(smXVirtualScreen),
		"virtual_y", metric(smYVirtualScreen),
		"virtual_w", metric(smCXVirtualScreen),
		"virtual_h", metric(smCYVirtualScreen),
		"primary_w", metric(smCXScreen),
		"primary_h", metric(smCYScreen),
	)
}
