package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is a trailing month count selecting how much trend history is displayed or exported.
type Window int

// Recognized windows.
const (
	Window6M Window = 6
	Window1Y Window = 12
	Window2Y Window = 24
	Window5Y Window = 60
)

// DefaultWindow is used when no window is requested.
const DefaultWindow = Window1Y

// Windows lists the recognized windows in ascending order.
var Windows = []Window{Window6M, Window1Y, Window2Y, Window5Y}

// Valid reports whether w is one of the recognized windows.
func (w Window) Valid() bool {
	switch w {
	case Window6M, Window1Y, Window2Y, Window5Y:
		return true
	}
	return false
}

// Months returns the window length as an int.
func (w Window) Months() int {
	return int(w)
}

func (w Window) String() string {
	return strconv.Itoa(int(w)) + "m"
}

// ParseWindow parses "12", "12m", or "" (default). Unrecognized values return ErrInvalidWindow.
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "m")
	if s == "" {
		return DefaultWindow, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	w := Window(n)
	if !w.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWindow, n)
	}
	return w, nil
}
