package loadkit

// Version is stamped at build time with -ldflags "-X github.com/aretw0/loadkit.Version=...".
var Version = "0.1.0-dev"
