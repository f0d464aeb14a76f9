// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.1.0"

// Milestones:
// 0.1.0 - Night planning with polar fallback, Horizons/ISS/local ephemerides,
//         visibility classification, session cache, TUI and headless modes
