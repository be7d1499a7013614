// Package tray owns the system tray surface: the capture checkbox, a
// live capture indicator in the tooltip, and quit. Built on
// getlantern/systray, which requires the icon and menu to be created
// from its ready callback.
package tray

import (
	"encoding/binary"
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem is one tray menu entry. Checked state set before the menu is
// built is applied when the entry is created.
type MenuItem struct {
	mu        sync.Mutex
	title     string
	callback  func()
	checkable bool
	checked   bool
	item      *systray.MenuItem
}

// SetChecked updates the checkbox state. Safe on a nil receiver so
// callers can toggle before the item exists.
func (mi *MenuItem) SetChecked(on bool) {
	if mi == nil {
		return
	}
	mi.mu.Lock()
	mi.checked = on
	item := mi.item
	mi.mu.Unlock()

	if item == nil {
		return
	}
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}

// Tray manages the icon, tooltip and menu. Entries must be added before
// Run; the capture indicator may change at any time after.
type Tray struct {
	title   string
	tooltip string

	mu      sync.Mutex
	entries []*MenuItem // nil entry renders as a separator
	ready   bool

	quitCh chan struct{}
}

// New returns an unstarted tray.
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddItem appends a clickable entry.
func (t *Tray) AddItem(title string, callback func()) *MenuItem {
	return t.add(&MenuItem{title: title, callback: callback})
}

// AddCheckItem appends a checkbox entry.
func (t *Tray) AddCheckItem(title string, callback func()) *MenuItem {
	return t.add(&MenuItem{title: title, callback: callback, checkable: true})
}

// AddSeparator appends a separator.
func (t *Tray) AddSeparator() {
	t.add(nil)
}

func (t *Tray) add(mi *MenuItem) *MenuItem {
	t.mu.Lock()
	t.entries = append(t.entries, mi)
	t.mu.Unlock()
	return mi
}

// SetCaptureActive updates the tooltip to reflect whether input is being
// bridged. Dropped silently before the tray is ready.
func (t *Tray) SetCaptureActive(active bool) {
	t.mu.Lock()
	ready := t.ready
	t.mu.Unlock()
	if !ready {
		return
	}
	if active {
		systray.SetTooltip(t.tooltip + " (capturing)")
	} else {
		systray.SetTooltip(t.tooltip + " (idle)")
	}
}

// Run starts the tray event loop and blocks until Stop.
func (t *Tray) Run() {
	systray.Run(t.setup, func() {
		close(t.quitCh)
	})
}

// Stop exits the tray event loop.
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) setup() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(trayIcon())

	t.mu.Lock()
	entries := t.entries
	t.ready = true
	t.mu.Unlock()

	for _, mi := range entries {
		if mi == nil {
			systray.AddSeparator()
			continue
		}

		mi.mu.Lock()
		if mi.checkable {
			mi.item = systray.AddMenuItemCheckbox(mi.title, "", mi.checked)
		} else {
			mi.item = systray.AddMenuItem(mi.title, "")
		}
		item := mi.item
		callback := mi.callback
		mi.mu.Unlock()

		if callback == nil {
			continue
		}
		go func() {
			for {
				select {
				case <-item.ClickedCh:
					callback()
				case <-t.quitCh:
					return
				}
			}
		}()
	}
}

// trayIcon builds a transparent 16x16 32bpp ICO in memory; systray
// requires a valid icon on Windows.
func trayIcon() []byte {
	const (
		pixelBytes = 16 * 16 * 4
		maskBytes  = 16 * 4
		dibBytes   = 40 + pixelBytes + maskBytes
		dataOffset = 22
	)

	buf := make([]byte, dataOffset+dibBytes)

	// ICONDIR with a single 16x16 32bpp entry.
	copy(buf, []byte{0, 0, 1, 0, 1, 0, 16, 16, 0, 0, 1, 0, 32, 0})
	binary.LittleEndian.PutUint32(buf[14:], dibBytes)
	binary.LittleEndian.PutUint32(buf[18:], dataOffset)

	// BITMAPINFOHEADER; height is doubled to cover the AND mask.
	binary.LittleEndian.PutUint32(buf[dataOffset:], 40)
	binary.LittleEndian.PutUint32(buf[dataOffset+4:], 16)
	binary.LittleEndian.PutUint32(buf[dataOffset+8:], 32)
	binary.LittleEndian.PutUint16(buf[dataOffset+12:], 1)
	binary.LittleEndian.PutUint16(buf[dataOffset+14:], 32)
	binary.LittleEndian.PutUint32(buf[dataOffset+20:], pixelBytes)

	// Pixel and mask bytes stay zero: fully transparent.
	return buf
}
