//go:build windows

// Windows service support via github.com/kardianos/service. Lets the
// gateway run as a background service with proper Start/Stop handling.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kardianos/service"
)

// program implements service.Interface, bridging the service lifecycle to
// the gateway's run function.
type program struct {
	ctx    context.Context
	cancel context.CancelFunc
	exit   chan struct{}
}

// Start launches the gateway in a goroutine and returns immediately, as the
// service control manager requires.
func (p *program) Start(s service.Service) error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.exit = make(chan struct{})

	go func() {
		defer close(p.exit)
		run(p.ctx)
	}()
	return nil
}

// Stop cancels the gateway's context and waits for the graceful shutdown to
// finish.
func (p *program) Stop(s service.Service) error {
	p.cancel()

	select {
	case <-p.exit:
		return nil
	case <-time.After(90 * time.Second):
		return fmt.Errorf("timeout waiting for gateway to stop")
	}
}

// serviceConfig describes the Windows service registration.
func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "InfernalForge",
		DisplayName: "InfernalForge Generation Gateway",
		Description: "Admission-control gateway for the image-generation service",
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

// RunAsService runs the gateway under the service control manager. Returns
// false when the process is interactive, so main falls through to a normal
// foreground run.
func RunAsService() (bool, error) {
	if service.Interactive() {
		return false, nil
	}

	svc, err := service.New(&program{}, serviceConfig())
	if err != nil {
		return true, fmt.Errorf("create service: %w", err)
	}
	if err := svc.Run(); err != nil {
		return true, fmt.Errorf("run service: %w", err)
	}
	return true, nil
}
