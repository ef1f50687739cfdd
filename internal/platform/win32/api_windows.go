//go:build windows

package win32

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procToUnicodeEx              = user32.NewProc("ToUnicodeEx")
	procGetKeyboardLayout        = user32.NewProc("GetKeyboardLayout")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procMapVirtualKeyEx          = user32.NewProc("MapVirtualKeyExW")
	procAttachThreadInput        = user32.NewProc("AttachThreadInput")
	procGetKeyboardState         = user32.NewProc("GetKeyboardState")
	procSendInput                = user32.NewProc("SendInput")
)

const (
	inputKeyboard = 1

	mapvkVKToVSCEx = 4

	// ToUnicodeEx flag: do not change the kernel keyboard state.
	toUnicodeNoStateChange = 0x4
)

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	vk    uint16
	scan  uint16
	flags uint32
	time  uint32
	extra uintptr
}

// input mirrors INPUT for keyboard events. The padding covers the larger
// MOUSEINPUT member of the union.
type input struct {
	typ uint32
	ki  keybdInput
	_   [8]byte
}

func keyInput(scan uint16, flags uint32) input {
	return input{typ: inputKeyboard, ki: keybdInput{scan: scan, flags: flags}}
}

func sendInputs(in []input) error {
	if len(in) == 0 {
		return nil
	}
	n, _, err := procSendInput.Call(uintptr(len(in)), uintptr(unsafe.Pointer(&in[0])), unsafe.Sizeof(in[0]))
	if int(n) != len(in) {
		return err
	}
	return nil
}

// foregroundThread returns the thread owning the foreground window.
func foregroundThread() uintptr {
	hwnd, _, _ := procGetForegroundWindow.Call()
	tid, _, _ := procGetWindowThreadProcessID.Call(hwnd, 0)
	return tid
}

// foregroundLayout returns the HKL of the thread owning the foreground
// window, which is the layout the user is typing with.
func foregroundLayout() uintptr {
	hkl, _, _ := procGetKeyboardLayout.Call(foregroundThread())
	return hkl
}

// foregroundKeyState reads the keyboard state of the foreground thread. The
// calling thread attaches to its input queue for the read, since
// GetKeyboardState only sees the queue of the calling thread.
func foregroundKeyState() (keyState, error) {
	var st keyState
	self := uintptr(windows.GetCurrentThreadId())
	fg := foregroundThread()
	attached := false
	if fg != 0 && fg != self {
		r, _, _ := procAttachThreadInput.Call(self, fg, 1)
		attached = r != 0
	}
	r, _, err := procGetKeyboardState.Call(uintptr(unsafe.Pointer(&st[0])))
	if attached {
		procAttachThreadInput.Call(self, fg, 0)
	}
	if r == 0 {
		return st, fmt.Errorf("win32: GetKeyboardState: %w", err)
	}
	return st, nil
}

// hklTranslator runs ToUnicodeEx against one layout.
type hklTranslator struct{ hkl uintptr }

func (t hklTranslator) scan(vk uint32) uint32 {
	sc, _, _ := procMapVirtualKeyEx.Call(uintptr(vk), mapvkVKToVSCEx, t.hkl)
	return uint32(sc)
}

func (t hklTranslator) translate(vk, sc uint32, st *keyState, keep bool) (rune, int) {
	var flags uintptr = toUnicodeNoStateChange
	if keep {
		flags = 0
	}
	var buf [8]uint16
	ret, _, _ := procToUnicodeEx.Call(
		uintptr(vk), uintptr(sc),
		uintptr(unsafe.Pointer(&st[0])),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)),
		flags, t.hkl,
	)
	n := int(int32(ret))
	if n == 0 {
		return 0, 0
	}
	return rune(buf[0]), n
}

// flush types space until a pending dead key comes out.
func (t hklTranslator) flush() {
	var st keyState
	sc := t.scan(vkSpace)
	for i := 0; i < 4; i++ {
		if _, n := t.translate(vkSpace, sc, &st, true); n >= 0 {
			return
		}
	}
}
