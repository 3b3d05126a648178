package domain

// Compressor shrinks a staged dump before it is kept and uploaded.
type Compressor interface {
	Compress(sourcePath, destPath string) error
}
