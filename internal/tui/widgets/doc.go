// Package widgets contains stateless render primitives for the dashboard:
// the popup compositor and status bars. No key handling lives here.
package widgets
