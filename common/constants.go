package common

// DefaultPageSize is the fixed on-disk page size used when no override is
// supplied through config.Config.
const DefaultPageSize = 4096

// InvalidPageNumber marks an absent or not-yet-allocated page.
const InvalidPageNumber int64 = -1
