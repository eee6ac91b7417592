package batch

// File permission constants.
const (
	logFilePermission    = 0600
	outputFilePermission = 0600
	directoryPermission  = 0750
)

// sidecarExt names the OCR text file stored next to a document.
const sidecarExt = ".txt"

const timestampLayout = "20060102_150405"

// topRisky is how many of the riskiest documents the summary lists.
const topRisky = 10

var supportedExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".tif": {}, ".tiff": {},
	".bmp": {}, ".webp": {}, ".pdf": {},
}
