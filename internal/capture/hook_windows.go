//go:build windows

package capture

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"keyrelay/internal/keys"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetKeyState         = user32.NewProc("GetKeyState")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13

	wmQuit       = 0x0012
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	llkhfExtended = 0x01
	llkhfInjected = 0x10

	vkCapital = 0x14
	vkNumLock = 0x90
)

// hookRecord mirrors KBDLLHOOKSTRUCT.
type hookRecord struct {
	vkCode    uint32
	scanCode  uint32
	flags     uint32
	time      uint32
	extraInfo uintptr
}

func recordAt(lParam uintptr) *hookRecord { return (*hookRecord)(unsafe.Pointer(lParam)) }

func (r *hookRecord) VirtualKey() uint32 { return r.vkCode }
func (r *hookRecord) Extended() bool     { return r.flags&llkhfExtended != 0 }
func (r *hookRecord) Injected() bool     { return r.flags&llkhfInjected != 0 }

// ScanCode returns the scan code with 0xE0 in the high byte for extended keys.
func (r *hookRecord) ScanCode() uint32 { return keys.HookScanCode(r.scanCode, r.Extended()) }

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

type hookSource struct {
	events   chan keys.KeyEvent
	tracker  *tracker
	grab     bool
	threadID uint32
	once     sync.Once
	logger   *slog.Logger
}

func open(opts Options) (Source, error) {
	t := &tracker{altGr: opts.AltGr, hotkeys: opts.Hotkeys}
	if toggled(vkCapital) {
		t.locks |= keys.ModCaps
	}
	if toggled(vkNumLock) {
		t.locks |= keys.ModNum
	}
	s := &hookSource{
		events:  make(chan keys.KeyEvent, opts.Buffer),
		tracker: t,
		grab:    opts.Grab,
		logger:  opts.Logger,
	}
	ready := make(chan error, 1)
	go s.hookThread(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	s.logger.Info("capturing", "grab", opts.Grab)
	return s, nil
}

// hookThread installs the hook and pumps messages on one OS thread, as
// low-level hooks require.
func (s *hookSource) hookThread(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.events)

	s.threadID = windows.GetCurrentThreadId()
	hInstance, _, _ := procGetModuleHandle.Call(0)
	hook, _, err := procSetWindowsHookEx.Call(whKeyboardLL, windows.NewCallback(s.proc), hInstance, 0)
	if hook == 0 {
		ready <- fmt.Errorf("capture: install keyboard hook: %w", err)
		return
	}
	defer procUnhookWindowsHookEx.Call(hook)
	ready <- nil

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			s.logger.Debug("hook thread exiting")
			return
		}
	}
}

func (s *hookSource) proc(nCode int32, wParam, lParam uintptr) uintptr {
	if nCode >= 0 {
		rec := recordAt(lParam)
		var press bool
		switch wParam {
		case wmKeyDown, wmSysKeyDown:
			press = true
		case wmKeyUp, wmSysKeyUp:
		default:
			return callNext(nCode, wParam, lParam)
		}
		// Our own SendInput traffic is not captured.
		if rec.Injected() {
			return callNext(nCode, wParam, lParam)
		}
		scan := rec.ScanCode()
		if p, ok := keys.ScanCodes.Key(scan); ok {
			send(s.events, s.tracker.event(p, press, rec.VirtualKey(), scan), s.logger)
		}
		if s.grab {
			return 1
		}
	}
	return callNext(nCode, wParam, lParam)
}

func callNext(nCode int32, wParam, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func toggled(vk uintptr) bool {
	r, _, _ := procGetKeyState.Call(vk)
	return r&1 != 0
}

func (s *hookSource) Events() <-chan keys.KeyEvent { return s.events }

func (s *hookSource) Close() error {
	s.once.Do(func() {
		procPostThreadMessage.Call(uintptr(s.threadID), wmQuit, 0, 0)
	})
	return nil
}
