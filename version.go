package arbor

// Version is the release of the arbor module, reported by the CLI and the HTTP /info endpoint.
const Version = "0.3.0"
