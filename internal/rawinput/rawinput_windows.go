//go:build windows

// Package rawinput owns the Windows Raw Input registration and message
// loop. It converts RAWINPUT payloads into device reports and hands them
// to a dispatcher; all translation policy lives downstream.
package rawinput

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/rs/zerolog"

	"scanbridge/internal/decode"
)

const (
	wmInput   = 0x00FF
	ridInput  = 0x10000003
	pmRemove  = 1
	wsVisible = 0x10000000

	wsExLayered     = 0x00080000
	wsExTransparent = 0x00000020
	lwaAlpha        = 0x00000002

	hidUsagePageGeneric = 0x01
	hidUsageMouse       = 0x02
	hidUsageKeyboard    = 0x06

	ridevInputSink = 0x00000100
	ridevNoHotkeys = 0x00000200

	riKeyBreak = 0x01
	riKeyE0    = 0x02
	riKeyE1    = 0x04

	mouseMoveAbsolute = 0x0001
)

var (
	user32                     = syscall.NewLazyDLL("user32.dll")
	kernel32                   = syscall.NewLazyDLL("kernel32.dll")
	procRegisterRawInput       = user32.NewProc("RegisterRawInputDevices")
	procGetRawInputData        = user32.NewProc("GetRawInputData")
	procCreateWindowEx         = user32.NewProc("CreateWindowExW")
	procDefWindowProc          = user32.NewProc("DefWindowProcW")
	procRegisterClassEx        = user32.NewProc("RegisterClassExW")
	procPeekMessage            = user32.NewProc("PeekMessageW")
	procTranslateMessage       = user32.NewProc("TranslateMessage")
	procDispatchMessage        = user32.NewProc("DispatchMessageW")
	procSetLayeredWindowAttrib = user32.NewProc("SetLayeredWindowAttributes")
	procGetModuleHandle        = kernel32.NewProc("GetModuleHandleW")
)

type wndClassEx struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     syscall.Handle
	HIcon         syscall.Handle
	HCursor       syscall.Handle
	HbrBackground syscall.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       syscall.Handle
}

type point struct {
	X, Y int32
}

type msg struct {
	Hwnd    syscall.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type rawInputDevice struct {
	UsUsagePage uint16
	UsUsage     uint16
	DwFlags     uint32
	HwndTarget  syscall.Handle
}

type rawInputHeader struct {
	DwType  uint32
	DwSize  uint32
	HDevice syscall.Handle
	WParam  uintptr
}

// rawMouse mirrors the Win32 RAWMOUSE layout. In C the ulButtons field
// and the usButtonFlags/usButtonData pair are a union at offset 4; only
// the pair is declared here, after 2 bytes of padding, so every field
// lands on its documented offset and the struct is 24 bytes.
type rawMouse struct {
	UsFlags            uint16
	_                  uint16
	UsButtonFlags      uint16
	UsButtonData       uint16
	UlRawButtons       uint32
	LLastX             int32
	LLastY             int32
	UlExtraInformation uint32
}

type rawKeyboard struct {
	MakeCode         uint16
	Flags            uint16
	Reserved         uint16
	VKey             uint16
	Message          uint32
	ExtraInformation uint32
}

type rawInput struct {
	Header rawInputHeader
	Mouse  rawMouse
	// Union in C; keyboard data is read through the same offset.
}

// Dispatcher consumes one raw device report per WM_INPUT message.
type Dispatcher interface {
	Dispatch(r decode.RawReport)
}

// Source registers for Raw Input and pumps reports into a Dispatcher.
type Source struct {
	mu      sync.Mutex
	hwnd    syscall.Handle
	running bool
	handler Dispatcher
	log     zerolog.Logger
}

// NewSource returns an unstarted source feeding handler.
func NewSource(handler Dispatcher, log zerolog.Logger) *Source {
	return &Source{handler: handler, log: log}
}

// WindowHandle returns the raw input window handle, or 0 before Start.
func (s *Source) WindowHandle() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uintptr(s.hwnd)
}

// Start spawns the message loop thread, creates the hidden window and
// registers both device classes. The window must be created on the same
// OS thread that pumps its messages.
func (s *Source) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("rawinput: source already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go s.messageLoop(errCh)
	return <-errCh
}

// Stop halts the message loop.
func (s *Source) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Source) messageLoop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := s.createWindow(); err != nil {
		ready <- err
		return
	}
	if err := s.registerDevices(); err != nil {
		ready <- err
		return
	}
	ready <- nil

	s.log.Info().Msg("raw input message loop running")

	var m msg
	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}

		ret, _, _ := procPeekMessage.Call(
			uintptr(unsafe.Pointer(&m)),
			0, 0, 0, pmRemove,
		)
		if int32(ret) != 0 {
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

func (s *Source) createWindow() error {
	className := syscall.StringToUTF16Ptr("ScanbridgeRawInput")

	hInstance, _, _ := procGetModuleHandle.Call(0)
	wndClass := wndClassEx{
		CbSize:        uint32(unsafe.Sizeof(wndClassEx{})),
		LpfnWndProc:   syscall.NewCallback(s.windowProc),
		HInstance:     syscall.Handle(hInstance),
		LpszClassName: className,
	}

	ret, _, err := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&wndClass)))
	if ret == 0 {
		return fmt.Errorf("rawinput: RegisterClassEx failed: %v", err)
	}

	hwnd, _, err := procCreateWindowEx.Call(
		wsExLayered|wsExTransparent,
		uintptr(unsafe.Pointer(className)),
		0,
		wsVisible,
		0, 0, 1, 1,
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		return fmt.Errorf("rawinput: CreateWindowEx failed: %v", err)
	}

	procSetLayeredWindowAttrib.Call(hwnd, 0, 1, lwaAlpha)

	s.mu.Lock()
	s.hwnd = syscall.Handle(hwnd)
	s.mu.Unlock()
	return nil
}

func (s *Source) registerDevices() error {
	rids := []rawInputDevice{
		{
			UsUsagePage: hidUsagePageGeneric,
			UsUsage:     hidUsageKeyboard,
			DwFlags:     ridevInputSink | ridevNoHotkeys,
			HwndTarget:  s.hwnd,
		},
		{
			UsUsagePage: hidUsagePageGeneric,
			UsUsage:     hidUsageMouse,
			DwFlags:     ridevInputSink,
			HwndTarget:  s.hwnd,
		},
	}

	for i := range rids {
		ret, _, err := procRegisterRawInput.Call(
			uintptr(unsafe.Pointer(&rids[i])),
			1,
			uintptr(unsafe.Sizeof(rids[i])),
		)
		if ret == 0 {
			return fmt.Errorf("rawinput: RegisterRawInputDevices failed for usage 0x%02X: %v", rids[i].UsUsage, err)
		}
	}

	s.log.Info().Msg("raw input devices registered")
	return nil
}

func (s *Source) windowProc(hwnd syscall.Handle, message uint32, wparam, lparam uintptr) uintptr {
	if message == wmInput {
		s.handleInput(lparam)
		return 0
	}
	ret, _, _ := procDefWindowProc.Call(uintptr(hwnd), uintptr(message), wparam, lparam)
	return ret
}

func (s *Source) handleInput(lparam uintptr) {
	var size uint32
	ret, _, _ := procGetRawInputData.Call(
		lparam,
		ridInput,
		0,
		uintptr(unsafe.Pointer(&size)),
		unsafe.Sizeof(rawInputHeader{}),
	)
	if ret == 0xFFFFFFFF || size == 0 {
		return
	}

	data := make([]byte, size)
	ret, _, _ = procGetRawInputData.Call(
		lparam,
		ridInput,
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(unsafe.Pointer(&size)),
		unsafe.Sizeof(rawInputHeader{}),
	)
	if ret == 0xFFFFFFFF || ret == 0 {
		return
	}

	ri := (*rawInput)(unsafe.Pointer(&data[0]))

	switch decode.DeviceType(ri.Header.DwType) {
	case decode.DeviceKeyboard:
		kb := (*rawKeyboard)(unsafe.Pointer(&ri.Mouse))
		s.handler.Dispatch(decode.RawReport{
			Device: decode.DeviceKeyboard,
			Keyboard: decode.RawKeyReport{
				MakeCode: kb.MakeCode,
				E0:       kb.Flags&riKeyE0 != 0,
				E1:       kb.Flags&riKeyE1 != 0,
				Break:    kb.Flags&riKeyBreak != 0,
			},
		})
	case decode.DeviceMouse:
		s.handler.Dispatch(decode.RawReport{
			Device: decode.DeviceMouse,
			Mouse: decode.RawMouseReport{
				ButtonFlags: ri.Mouse.UsButtonFlags,
				WheelDelta:  int16(ri.Mouse.UsButtonData),
				Absolute:    ri.Mouse.UsFlags&mouseMoveAbsolute != 0,
				X:           ri.Mouse.LLastX,
				Y:           ri.Mouse.LLastY,
			},
		})
	case decode.DeviceHID:
		s.handler.Dispatch(decode.RawReport{Device: decode.DeviceHID})
	}
}
