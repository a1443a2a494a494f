package sofs

// MountOptions controls Mount's block-cache sizing.
type MountOptions struct {
	// CacheBlocks is the number of blocks the block cache buffers. Zero
	// disables buffering (every read/write round-trips to the device).
	CacheBlocks int
}

// Mount opens path as a Device and validates its superblock, returning a
// ready-to-use FileSystem. MagicFormatting (an interrupted format) and any
// other magic besides MagicValid are both rejected. A dirty mount status
// is reported to the caller via FileSystem.WasDirty so adapters can log it,
// but mounting proceeds regardless — SOFS does not implement its own fsck.
func Mount(path string, opts MountOptions) (*FileSystem, error) {

	dev, err := OpenDevice(path)
	if err != nil {
		return nil, err
	}

	fs := newFileSystem(dev, opts.CacheBlocks)

	if err := fs.meta.LoadSuperblock(); err != nil {
		dev.Close()
		return nil, err
	}

	sb, err := fs.superblock()
	if err != nil {
		dev.Close()
		return nil, err
	}

	if sb.Magic != MagicValid {
		dev.Close()
		return nil, ErrClusterHeaderInvalid
	}

	fs.wasDirty = sb.IsDirty()

	sb.MountStatus = statusDirty
	if err := fs.putSuperblock(sb); err != nil {
		dev.Close()
		return nil, err
	}
	if err := fs.cache.Flush(0); err != nil {
		dev.Close()
		return nil, err
	}

	return fs, nil

}

// WasDirty reports whether the volume's mount status was dirty (not
// cleanly unmounted) at mount time.
func (fs *FileSystem) WasDirty() bool {
	return fs.wasDirty
}

// Unmount flushes every dirty block, marks the volume cleanly unmounted,
// and closes the underlying device. fs must not be used afterwards.
func (fs *FileSystem) Unmount() error {

	sb, err := fs.superblock()
	if err != nil {
		return err
	}
	sb.MountStatus = statusClean
	if err := fs.putSuperblock(sb); err != nil {
		return err
	}

	if err := fs.Sync(); err != nil {
		return err
	}

	return fs.dev.Close()

}
