package sofs

import "sync"

// FileSystem is one mounted SOFS volume: the device it sits on, the block
// cache in front of it, the metadata scratch slots, and a mutex exposed
// through Lock/Unlock. The operations of this package do not take the
// mutex themselves.
type FileSystem struct {
	mu sync.Mutex

	dev      Device
	cache    *BlockCache
	meta     *MetadataSession
	wasDirty bool
}

// newFileSystem wires a Device into a fresh, unmounted FileSystem value.
func newFileSystem(dev Device, cacheSize int) *FileSystem {
	cache := NewBlockCache(dev, cacheSize)
	return &FileSystem{
		dev:   dev,
		cache: cache,
		meta:  newMetadataSession(cache),
	}
}

// Lock/Unlock expose the coarse-grained lock to callers that need to
// serialize access to the volume. Nothing in this package acquires it.
func (fs *FileSystem) Lock()   { fs.mu.Lock() }
func (fs *FileSystem) Unlock() { fs.mu.Unlock() }

func (fs *FileSystem) superblock() (Superblock, error) {
	return fs.meta.Superblock()
}

func (fs *FileSystem) putSuperblock(sb Superblock) error {
	return fs.meta.StoreSuperblock(sb)
}

func (fs *FileSystem) getInode(n uint32) (Inode, error) {
	sb, err := fs.superblock()
	if err != nil {
		return Inode{}, err
	}
	if n >= sb.ITotal {
		return Inode{}, ErrInvalidArgument
	}
	if err := fs.meta.LoadInodeTableBlock(sb, n); err != nil {
		return Inode{}, err
	}
	return fs.meta.Inode(n)
}

func (fs *FileSystem) putInode(n uint32, ino Inode) error {
	sb, err := fs.superblock()
	if err != nil {
		return err
	}
	if n >= sb.ITotal {
		return ErrInvalidArgument
	}
	if err := fs.meta.LoadInodeTableBlock(sb, n); err != nil {
		return err
	}
	if err := fs.meta.SetInode(n, ino); err != nil {
		return err
	}
	return fs.meta.StoreInodeTableBlock(sb)
}

// Sync flushes every dirty cached block to the device. Called on fsync and
// on clean unmount.
func (fs *FileSystem) Sync() error {
	return fs.cache.SyncAll()
}
