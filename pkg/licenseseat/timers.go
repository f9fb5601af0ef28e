package licenseseat

import (
	"context"
	"errors"
	"time"

	"github.com/licenseseat/sdk-go/pkg/licenseseat/api"
	"github.com/licenseseat/sdk-go/pkg/licenseseat/eventbus"
)

// startTimersLocked starts the auto-validation and heartbeat background
// loops, if their intervals are non-zero. Callers must hold opMu. Safe
// to call when timers are already running (no-op).
func (c *Client) startTimersLocked() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.timersRunning {
		return
	}
	c.timersRunning = true
	stop := make(chan struct{})
	c.timerStop = stop

	if c.cfg.AutoValidateInterval > 0 {
		c.autoValidateTimer = time.NewTicker(c.cfg.AutoValidateInterval)
		c.wg.Add(1)
		go c.autoValidateLoop(c.autoValidateTimer, stop)
	}
	if c.cfg.HeartbeatInterval > 0 {
		c.heartbeatTimer = time.NewTicker(c.cfg.HeartbeatInterval)
		c.wg.Add(1)
		go c.heartbeatLoop(c.heartbeatTimer, stop)
	}
}

// stopTimersLocked stops both background loops and waits for neither; the
// goroutines exit on their own once stop is closed. Callers must hold
// opMu. Safe to call when timers are not running (no-op).
func (c *Client) stopTimersLocked() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if !c.timersRunning {
		return
	}
	close(c.timerStop)
	hadAutoValidate := c.autoValidateTimer != nil
	if c.autoValidateTimer != nil {
		c.autoValidateTimer.Stop()
		c.autoValidateTimer = nil
	}
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
		c.heartbeatTimer = nil
	}
	c.timersRunning = false
	if hadAutoValidate {
		c.bus.Emit(eventbus.TopicAutovalidationStopped, nil)
	}
}

// autoValidateLoop periodically revalidates the currently cached
// license, if any. A missing license is a silent no-op tick, since
// Activate is what starts the timers in the first place. A successful
// online revalidation is immediately followed by a heartbeat; a
// transient network failure, whether or not an offline token carried
// the cycle through, emits validation:auto-failed instead.
func (c *Client) autoValidateLoop(ticker *time.Ticker, stop <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-ticker.C:
			lic := c.cache.GetLicense()
			if lic == nil {
				continue
			}
			c.bus.Emit(eventbus.TopicAutovalidationCycle, lic.Key)
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.HTTPTimeout)
			result, err := c.Validate(ctx, lic.Key, ValidateOptions{DeviceID: lic.DeviceID})
			switch {
			case err == nil && result.Valid && !result.Offline:
				_ = c.Heartbeat(ctx)
			case err == nil && result.Offline:
				c.bus.Emit(eventbus.TopicValidationAutoFailed, result)
			case err != nil:
				var apiErr *api.Error
				if errors.As(err, &apiErr) && apiErr.IsNetwork() {
					c.bus.Emit(eventbus.TopicValidationAutoFailed, err)
				}
			}
			cancel()
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

// heartbeatLoop periodically pings the server so it can track the
// device as alive independent of the validation cadence.
func (c *Client) heartbeatLoop(ticker *time.Ticker, stop <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.HTTPTimeout)
			_ = c.Heartbeat(ctx)
			cancel()
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		}
	}
}
