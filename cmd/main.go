// Scanbridge - raw input translation bridge
// Captures Windows Raw Input, normalizes it into emulated keyboard and
// mouse state, and streams the result to subscribers over WebSocket/UDP.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"scanbridge/internal/api"
	"scanbridge/internal/config"
	"scanbridge/internal/cursor"
	"scanbridge/internal/decode"
	"scanbridge/internal/emulated"
	"scanbridge/internal/hotkey"
	"scanbridge/internal/logging"
	"scanbridge/internal/network"
	"scanbridge/internal/osutils"
	"scanbridge/internal/rawinput"
	"scanbridge/internal/scale"
	"scanbridge/internal/scancode"
	"scanbridge/internal/tray"
)

var (
	version   = "0.1.0"
	showVer   = flag.Bool("version", false, "Show version")
	agentMode = flag.Bool("agent", false, "Run as agent, receiving events from a host")
	hostAddr  = flag.String("host", "", "Host address (ip:port) for agent mode, overrides config")
	logLevel  = flag.String("log-level", "", "Log level override (trace/debug/info/warn/error)")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("scanbridge version %s\n", version)
		return
	}

	log := logging.Component("main")

	cfgMgr, err := config.NewManager()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize config")
	}
	if err := cfgMgr.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
	}

	cfg := cfgMgr.Get()
	if *logLevel != "" {
		logging.SetLevel(*logLevel)
	} else {
		logging.SetLevel(cfg.General.LogLevel)
	}

	if *agentMode {
		runAgent(cfgMgr, log)
		return
	}

	runHost(cfgMgr, log)
}

// runHost captures local raw input, translates it and publishes the
// emulated device state.
func runHost(cfgMgr *config.Manager, log zerolog.Logger) {
	cfg := cfgMgr.Get()

	remap, err := scancode.ParseEntries(cfg.Remap)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid remap table")
	}
	log.Info().Int("entries", remap.Remapped()).Msg("remap table loaded")

	keyboard := emulated.NewKeyboard()
	mouse := emulated.NewMouse()

	captureFlag := &decode.CaptureFlag{}
	captureFlag.Set(cfg.General.CaptureEnabled)

	scaler := scale.New(mouse, cfg.General.MouseSensitivity)

	// The raw input source is created after the decoders, so the
	// recenterer resolves the window handle lazily.
	var src *rawinput.Source
	recenter := cursor.ForWindow(func() uintptr {
		if src == nil {
			return 0
		}
		return src.WindowHandle()
	})

	mouseDec := decode.NewMouseDecoder(mouse, scaler, recenter)
	mouseDec.SetAbsoluteDivisor(cfg.General.AbsoluteDivisor)

	kbDec := decode.NewKeyboardDecoder(remap, keyboard)
	kbDec.SetRCtrlIsLAlt(cfg.General.RCtrlIsLAlt)

	// Transport layer.
	var udpSender *network.UDPSender
	var apiServer *api.Server
	if cfg.General.APIEnabled {
		if runtime.GOOS == "windows" {
			go func() {
				if err := osutils.EnsureFirewallRule(cfg.General.APIPort, logging.Component("firewall")); err != nil {
					log.Warn().Err(err).Msg("firewall rule setup failed")
				}
			}()
		}

		udpSender = network.NewUDPSender(cfg.General.APIPort, logging.Component("udp"))
		if err := udpSender.Start(); err != nil {
			log.Warn().Err(err).Msg("udp sender failed to start")
			udpSender = nil
		}

		status := func() api.Status {
			buttons, _, _ := mouse.State()
			st := api.Status{
				CaptureActive: captureFlag.Active(),
				Buttons:       buttons,
				RemappedKeys:  kbDec.Remap().Remapped(),
			}
			if udpSender != nil {
				st.Agents = udpSender.AgentCount()
			}
			return st
		}
		apiServer = api.NewServer(cfgMgr, status, logging.Component("api"))
		go func() {
			if err := apiServer.Start(cfg.General.APIPort); err != nil {
				log.Warn().Err(err).Msg("api server stopped")
			}
		}()
	}

	// Publish emulated device transitions.
	keyboard.OnEvent(func(pressed bool, code uint16) {
		if apiServer != nil {
			apiServer.BroadcastKey(code, pressed, nowMillis())
		}
		if udpSender != nil {
			udpSender.SendKey(code, pressed)
		}
	})
	mouse.OnButtons(func(mask uint8) {
		if apiServer != nil {
			apiServer.BroadcastButtons(mask)
		}
		if udpSender != nil {
			udpSender.SendButtons(mask)
		}
	})
	mouse.OnWheel(func(delta int) {
		if apiServer != nil {
			apiServer.BroadcastWheel(delta)
		}
		if udpSender != nil {
			udpSender.SendWheel(delta)
		}
	})
	mouse.OnMove(func(dx, dy int) {
		if apiServer != nil {
			apiServer.BroadcastMove(dx, dy)
		}
		if udpSender != nil {
			udpSender.SendMove(dx, dy)
		}
	})

	// Tray with a live capture checkbox and indicator.
	t := tray.New("Scanbridge", "Scanbridge input bridge")

	var captureItem *tray.MenuItem
	setCapture := func(active bool) {
		captureFlag.Set(active)
		captureItem.SetChecked(active)
		t.SetCaptureActive(active)
		if apiServer != nil {
			apiServer.BroadcastCapture(active)
		}
		if !active {
			// Release held keys so subscribers don't end up with stuck
			// modifiers after the user leaves the bridge.
			keyboard.Reset()
		}
		log.Info().Bool("active", active).Msg("pointer capture toggled")
	}

	// Capture toggle hotkey, evaluated on the input thread after every
	// processed keyboard report.
	checker := hotkey.NewChecker()
	if cfg.General.CaptureHotkey != "" {
		if err := checker.SetCombo(cfg.General.CaptureHotkey); err != nil {
			log.Warn().Err(err).Str("combo", cfg.General.CaptureHotkey).Msg("invalid capture hotkey")
		} else {
			log.Info().Str("combo", checker.Combo()).Msg("capture hotkey registered")
		}
	}
	checker.SetCallback(func() {
		setCapture(captureFlag.Toggle())
	})
	kbDec.SetProcessedHook(func() {
		checker.Check(keyboard)
	})

	dispatcher := decode.NewDispatcher(kbDec, mouseDec, hidLogger{log: logging.Component("hid")}, captureFlag)
	src = rawinput.NewSource(dispatcher, logging.Component("rawinput"))

	if runtime.GOOS == "windows" && !osutils.IsAdmin() {
		log.Warn().Msg("not running as administrator, raw input from elevated windows will be missed")
	}

	if err := src.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start raw input capture")
	}
	defer src.Stop()

	// Live-tunable settings follow config updates from the API.
	cfgMgr.RegisterChangeCallback(func() {
		c := cfgMgr.Get()
		scaler.SetSensitivity(c.General.MouseSensitivity)
		mouseDec.SetAbsoluteDivisor(c.General.AbsoluteDivisor)
		kbDec.SetRCtrlIsLAlt(c.General.RCtrlIsLAlt)
		if err := checker.SetCombo(c.General.CaptureHotkey); err != nil {
			log.Warn().Err(err).Msg("invalid capture hotkey in updated config")
		}
		if m, err := scancode.ParseEntries(c.Remap); err != nil {
			log.Warn().Err(err).Msg("invalid remap table in updated config")
		} else {
			kbDec.SetRemap(m)
		}
		log.Info().Msg("applied configuration update")
	})

	captureItem = t.AddCheckItem("Capture input", func() {
		setCapture(captureFlag.Toggle())
	})
	t.AddSeparator()
	t.AddItem("Quit", func() {
		t.Stop()
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		if udpSender != nil {
			udpSender.Stop()
		}
		t.Stop()
	}()

	if captureFlag.Active() {
		captureItem.SetChecked(true)
	}

	log.Info().Str("version", version).Msg("scanbridge host running")
	t.Run()
}

// runAgent subscribes to a host's UDP event stream and mirrors the
// emulated device state locally.
func runAgent(cfgMgr *config.Manager, log zerolog.Logger) {
	cfg := cfgMgr.Get()

	addr := cfg.General.HostAddr
	if *hostAddr != "" {
		addr = *hostAddr
	}
	if addr == "" {
		log.Fatal().Msg("agent mode requires a host address (-host or config host_addr)")
	}

	keyboard := emulated.NewKeyboard()
	mouse := emulated.NewMouse()

	receiver := network.NewUDPReceiver(addr, logging.Component("udp"))
	receiver.OnKey = func(code uint16, pressed bool) {
		keyboard.Key(pressed, code)
	}
	receiver.OnButtons = func(mask uint8) {
		mouse.SetButtons(mask)
	}
	receiver.OnWheel = func(notches int) {
		mouse.Wheel(notches)
	}
	receiver.OnMove = func(dx, dy int) {
		mouse.Move(dx, dy)
	}

	if !receiver.Probe() {
		log.Fatal().Str("host", addr).Msg("host unreachable over udp")
	}
	if err := receiver.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start udp receiver")
	}
	defer receiver.Stop()

	log.Info().Str("host", addr).Msg("scanbridge agent running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// hidLogger is the pass-through handler for reports that are neither
// keyboard nor mouse (joysticks and other HID devices). They are not
// translated, only surfaced at debug level.
type hidLogger struct {
	log zerolog.Logger
}

func (h hidLogger) HandleHID(r decode.RawReport) {
	h.log.Debug().Int("bytes", len(r.HID)).Msg("unhandled hid report")
}
