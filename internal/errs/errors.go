// Package errs defines the closed error taxonomy shared across the engine.
//
// Each category is a sentinel ConstError so callers can test with errors.Is
// without depending on a concrete error type; underlying causes are attached
// with errors.Join or fmt.Errorf("%w") rather than discarded.
package errs

// ConstError is a sentinel error usable as a package-level const.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// Catalog errors.
const (
	ErrCatalogInit   = ConstError("catalog: initialization failed")
	ErrCatalogQuery  = ConstError("catalog: query failed")
	ErrCatalogSchema = ConstError("catalog: schema migration failed")
	ErrNotFound      = ConstError("catalog: resource not found")
)

// Destination errors (closed taxonomy).
const (
	ErrConnectionFailed   = ConstError("destination: connection failed")
	ErrInvalidConfig      = ConstError("destination: invalid configuration")
	ErrUploadFailed       = ConstError("destination: upload failed")
	ErrFileNotFound       = ConstError("destination: file not found")
	ErrAuthFailed         = ConstError("destination: authentication failed")
	ErrNetworkUnreachable = ConstError("destination: network unreachable")
	ErrTimeout            = ConstError("destination: operation timed out")
)

// PhotoSource errors.
const (
	ErrAuthDenied       = ConstError("photosource: authorization denied")
	ErrAuthRestricted   = ConstError("photosource: authorization restricted")
	ErrExportFailed     = ConstError("photosource: export failed")
	ErrCloudDownload    = ConstError("photosource: cloud download failed")
	ErrUnsupportedAsset = ConstError("photosource: unsupported asset type")
)

// Encryption errors.
const (
	ErrInvalidPassphrase = ConstError("encryption: invalid passphrase")
	ErrKeyNotFound       = ConstError("encryption: key not found")
	ErrInvalidKeyData    = ConstError("encryption: invalid key data")
	ErrKeyGen            = ConstError("encryption: key generation failed")
	ErrEncryptFail       = ConstError("encryption: encrypt failed")
	ErrDecryptFail       = ConstError("encryption: decrypt failed")
	ErrSecureStore       = ConstError("encryption: secure store failed")
)

// Sync engine errors.
const (
	ErrAlreadyRunning = ConstError("sync: a job is already running")
	ErrNotRunning     = ConstError("sync: no job in the required state")
	ErrNoPhotosToSync = ConstError("sync: no photos require syncing")
)

// Scheduler errors.
const (
	ErrLaunchAtLoginFail = ConstError("scheduler: launch-at-login registration failed")
)
