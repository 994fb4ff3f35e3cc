package version

// Version is the current folio release version
const Version = "0.3.0"
