package support

import (
	"context"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/MeKo-Tech/roiscan/internal/testutil"
	"github.com/cucumber/godog"
)

// RegisterSteps binds the scan step definitions to sc.
func (c *ScanContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a ready recognition engine$`, c.aReadyEngine)
	sc.Step(`^the recognition engine is not initialized$`, c.engineNotInitialized)
	sc.Step(`^a slow recognition engine that returns "([^"]*)"$`, c.aSlowEngine)
	sc.Step(`^the scan region is (\d+), (\d+), (\d+) by (\d+)$`, c.theScanRegionIs)
	sc.Step(`^the camera shows "([^"]*)" inside the scan region$`, c.cameraShowsText)
	sc.Step(`^the camera shows an empty scene$`, c.cameraShowsEmpty)
	sc.Step(`^the camera has not delivered a frame$`, c.noFrame)
	sc.Step(`^a scan is in progress$`, c.aScanInProgress)
	sc.Step(`^I scan$`, c.iScan)
	sc.Step(`^the in-progress scan completes$`, c.theHeldScanCompletes)
	sc.Step(`^I touch down at (\d+), (\d+) and move to (\d+), (\d+)$`, c.iDrag)
	sc.Step(`^the result message is "([^"]*)"$`, c.theResultMessageIs)
	sc.Step(`^the scan fails with code "([^"]*)"$`, c.theScanFailsWith)
	sc.Step(`^the failure message is "([^"]*)"$`, c.theFailureMessageIs)
	sc.Step(`^the engine was not called$`, c.theEngineWasNotCalled)
	sc.Step(`^the engine is "([^"]*)"$`, c.theEngineIs)
	sc.Step(`^the scan region is now (\d+) by (\d+)$`, c.theRegionIsNow)
	sc.Step(`^the resized axis is "([^"]*)"$`, c.theResizedAxisIs)
}

func (c *ScanContext) aReadyEngine() error {
	return c.Engine.EnsureReady(context.Background())
}

func (c *ScanContext) engineNotInitialized() error {
	if st := c.Engine.State(); st != engine.StateUninitialized {
		return fmt.Errorf("engine is %s", st)
	}
	return nil
}

func (c *ScanContext) aSlowEngine(text string) error {
	if err := c.UseSlowEngine(text); err != nil {
		return err
	}
	return c.Engine.EnsureReady(context.Background())
}

func (c *ScanContext) theScanRegionIs(x, y, w, h int) error {
	c.Regions.SetRegion(region.ScanRegion{X: x, Y: y, Width: w, Height: h})
	return nil
}

func (c *ScanContext) cameraShowsText(text string) error {
	cfg := testutil.DefaultSceneConfig()
	cfg.Text = text
	cfg.Region = c.Regions.Snapshot()
	return c.Push(testutil.RenderScene(cfg))
}

func (c *ScanContext) cameraShowsEmpty() error {
	return c.cameraShowsText("")
}

func (c *ScanContext) noFrame() error {
	if c.Feed.Frames() != 0 {
		return errors.New("a frame was already delivered")
	}
	return nil
}

func (c *ScanContext) aScanInProgress() error {
	if err := c.cameraShowsText("X"); err != nil {
		return err
	}
	return c.StartHeldScan()
}

func (c *ScanContext) iScan() error {
	c.Scan()
	return nil
}

func (c *ScanContext) theHeldScanCompletes() error {
	c.Release()
	return nil
}

func (c *ScanContext) iDrag(x0, y0, x1, y1 int) error {
	c.Regions.TouchDown(float64(x0), float64(y0))
	c.LastAxis = c.Regions.TouchMove(float64(x1), float64(y1))
	return nil
}

func (c *ScanContext) theResultMessageIs(want string) error {
	if c.LastErr != nil {
		return fmt.Errorf("scan failed: %w", c.LastErr)
	}
	if got := c.LastResult.Message(); got != want {
		return fmt.Errorf("expected message %q, got %q", want, got)
	}
	return nil
}

func (c *ScanContext) theScanFailsWith(code string) error {
	if c.LastErr == nil {
		return fmt.Errorf("expected %s, scan succeeded with %q", code, c.LastResult.Text)
	}
	if got := scanerr.CodeOf(c.LastErr); string(got) != code {
		return fmt.Errorf("expected code %s, got %s (%v)", code, got, c.LastErr)
	}
	return nil
}

func (c *ScanContext) theFailureMessageIs(want string) error {
	if got := failureMessage(c.LastErr); got != want {
		return fmt.Errorf("expected failure message %q, got %q", want, got)
	}
	return nil
}

func (c *ScanContext) theEngineWasNotCalled() error {
	if n := c.Engine.Calls(); n != 0 {
		return fmt.Errorf("engine was called %d times", n)
	}
	return nil
}

func (c *ScanContext) theEngineIs(state string) error {
	if got := c.Engine.State().String(); got != state {
		return fmt.Errorf("expected engine %s, got %s", state, got)
	}
	return nil
}

func (c *ScanContext) theRegionIsNow(w, h int) error {
	r := c.Regions.Snapshot()
	if r.Width != w || r.Height != h {
		return fmt.Errorf("expected %dx%d, got %dx%d", w, h, r.Width, r.Height)
	}
	return nil
}

func (c *ScanContext) theResizedAxisIs(axis string) error {
	if got := c.LastAxis.String(); got != axis {
		return fmt.Errorf("expected axis %s, got %s", axis, got)
	}
	return nil
}
