// Package startup handles application configuration and startup
// logging for the card archive service: environment-driven config
// loading, directory validation, build info, and the structured
// startup/shutdown log banners.
package startup
