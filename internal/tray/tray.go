// Package tray provides a desktop system tray for the lingolens service.
package tray

import (
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/lingolens/internal/lang"
	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggleScan func(enabled bool) error
	onLanguage   func(l lang.Language) error
	onOpen       func()
	onQuit       func()

	scanning bool
	language lang.Language
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuObjects   *systray.MenuItem
	menuLanguages map[lang.Language]*systray.MenuItem
}

// New creates a new Tray showing current as the selected language.
func New(current lang.Language) *Tray {
	return &Tray{
		language:      current,
		menuLanguages: make(map[lang.Language]*systray.MenuItem),
	}
}

// OnToggleScan sets the callback run when scanning is switched on or off.
// If it fails the toggle keeps its previous state.
func (t *Tray) OnToggleScan(fn func(enabled bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggleScan = fn
}

// OnLanguage sets the callback run when a language is picked.
func (t *Tray) OnLanguage(fn func(l lang.Language) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onLanguage = fn
}

// OnOpen sets the callback run when the front-end should be opened.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops a running tray, making Run return.
func Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("LingoLens")
	systray.SetTooltip("LingoLens language scavenger hunt")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(scanTitle(t.scanning), "Start or stop scanning for objects")
	systray.AddSeparator()

	t.menuObjects = systray.AddMenuItem(objectsTitle(0), "Distinct objects found by the current scan")
	t.menuObjects.Disable()
	systray.AddSeparator()

	menuLanguage := systray.AddMenuItem("Language", "Target language")
	for _, l := range lang.All() {
		item := menuLanguage.AddSubMenuItemCheckbox(l.Flag()+" "+l.DisplayName(), l.Code(), l == t.language)
		t.menuLanguages[l] = item
		go func() {
			for range item.ClickedCh {
				t.handleLanguage(l)
			}
		}()
	}
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open LingoLens...", "Open the app in the browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit LingoLens")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func scanTitle(scanning bool) string {
	if scanning {
		return "● Scanning"
	}
	return "○ Start Scan"
}

func objectsTitle(n int) string {
	if n == 1 {
		return "1 object found"
	}
	return fmt.Sprintf("%d objects found", n)
}

// handleToggle handles the scan toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	enabled := !t.scanning
	callback := t.onToggleScan
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(enabled); err != nil {
			log.Printf("Failed to toggle scanning: %v", err)
			return
		}
	}
	t.SetScanning(enabled)
}

// handleLanguage handles a click on one of the language items.
func (t *Tray) handleLanguage(l lang.Language) {
	t.mu.RLock()
	callback := t.onLanguage
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(l); err != nil {
			log.Printf("Failed to select %s: %v", l, err)
			return
		}
	}
	t.SetLanguage(l)
}

// handleOpen handles the open menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetScanning updates the scan toggle.
func (t *Tray) SetScanning(scanning bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.scanning = scanning
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(scanTitle(scanning))
	}
}

// SetLanguage moves the check mark to l.
func (t *Tray) SetLanguage(l lang.Language) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.language = l
	for candidate, item := range t.menuLanguages {
		if candidate == l {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// SetObjectCount updates the number of objects shown in the menu.
func (t *Tray) SetObjectCount(n int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuObjects != nil {
		t.menuObjects.SetTitle(objectsTitle(n))
	}
}

// Scanning returns the current scan toggle state.
func (t *Tray) Scanning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scanning
}

// Language returns the language currently checked.
func (t *Tray) Language() lang.Language {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.language
}
