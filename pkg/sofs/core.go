package sofs

// Attr is the subset of an inode's metadata callers outside pkg/sofs care
// about (what fsadapter turns into a fuseops.InodeAttributes).
type Attr struct {
	Type  FileType
	Perm  uint16
	Links uint16
	Owner uint32
	Group uint32
	Size  uint32
	ATime uint32
	MTime uint32
}

func attrOf(ino Inode) Attr {
	return Attr{
		Type:  ino.Type(),
		Perm:  ino.Perm(),
		Links: ino.Links,
		Owner: ino.Owner,
		Group: ino.Group,
		Size:  ino.Size,
		ATime: ino.ATime(),
		MTime: ino.MTime(),
	}
}

// StatFSInfo mirrors the handful of fields a statfs(2) call reports.
type StatFSInfo struct {
	TotalBlocks  uint32
	TotalInodes  uint32
	FreeInodes   uint32
	TotalClusters uint32
	FreeClusters  uint32
	ClusterSize   uint32
}

// StatFS reports volume-wide space and inode accounting.
func (fs *FileSystem) StatFS() (StatFSInfo, error) {
	sb, err := fs.superblock()
	if err != nil {
		return StatFSInfo{}, err
	}
	return StatFSInfo{
		TotalBlocks:   sb.NTotal,
		TotalInodes:   sb.ITotal,
		FreeInodes:    sb.IFree,
		TotalClusters: sb.DZoneTotal,
		FreeClusters:  sb.DZoneFree,
		ClusterSize:   ClusterSize,
	}, nil
}

// GetAttr returns inode n's attributes.
func (fs *FileSystem) GetAttr(n uint32) (Attr, error) {
	ino, err := fs.getInode(n)
	if err != nil {
		return Attr{}, err
	}
	if ino.IsFree() {
		return Attr{}, ErrDoesNotExist
	}
	return attrOf(ino), nil
}

// Access performs a pure permission check: no mutation, no I/O besides the
// inode read. mode is a single rwx triple being tested (4 read, 2 write,
// 1 execute/search), checked against the owner, group or other class of
// the inode's permission bits.
func (fs *FileSystem) Access(n uint32, uid, gid uint32, mode uint16) error {

	ino, err := fs.getInode(n)
	if err != nil {
		return err
	}
	if ino.IsFree() {
		return ErrDoesNotExist
	}

	perm := ino.Perm()
	var shift uint
	switch {
	case uid == ino.Owner:
		shift = 6
	case gid == ino.Group:
		shift = 3
	default:
		shift = 0
	}

	if mode&^((perm>>shift)&0o7) != 0 && uid != 0 {
		return ErrAccessDenied
	}
	return nil

}

// Chmod replaces inode n's permission bits.
func (fs *FileSystem) Chmod(n uint32, perm uint16) error {
	ino, err := fs.getInode(n)
	if err != nil {
		return err
	}
	ino.Mode = makeMode(false, ino.Type(), perm&modePermMask)
	return fs.putInode(n, ino)
}

// Chown replaces inode n's owner and group. Either may be left unchanged by
// passing the inode's current value.
func (fs *FileSystem) Chown(n uint32, owner, group uint32) error {
	ino, err := fs.getInode(n)
	if err != nil {
		return err
	}
	ino.Owner = owner
	ino.Group = group
	return fs.putInode(n, ino)
}

// Utime sets inode n's access and modification times.
func (fs *FileSystem) Utime(n uint32, atime, mtime uint32) error {
	ino, err := fs.getInode(n)
	if err != nil {
		return err
	}
	ino.SetATime(atime)
	ino.SetMTime(mtime)
	return fs.putInode(n, ino)
}

// Lookup resolves name within directory parent.
func (fs *FileSystem) Lookup(parent uint32, name string) (uint32, Attr, error) {
	dir, err := fs.getInode(parent)
	if err != nil {
		return NullInode, Attr{}, err
	}
	if dir.Type() != TypeDirectory {
		return NullInode, Attr{}, ErrNotADirectory
	}
	child, err := fs.GetDirEntryByName(dir, name)
	if err != nil {
		return NullInode, Attr{}, err
	}
	ino, err := fs.getInode(child)
	if err != nil {
		return NullInode, Attr{}, err
	}
	return child, attrOf(ino), nil
}

// ReadDirNames returns every non-empty slot's name and inode number, in
// on-disk order, including "." and "..".
func (fs *FileSystem) ReadDirNames(n uint32) ([]string, []uint32, error) {
	dir, err := fs.getInode(n)
	if err != nil {
		return nil, nil, err
	}
	if dir.Type() != TypeDirectory {
		return nil, nil, ErrNotADirectory
	}
	var names []string
	var inodes []uint32
	err = fs.forEachDirEntry(dir, func(_ int64, _ int, e dirEntry) bool {
		if e.Inode != NullInode {
			names = append(names, e.name())
			inodes = append(inodes, e.Inode)
		}
		return false
	})
	return names, inodes, err
}

func (fs *FileSystem) createChild(parent uint32, name string, t FileType, perm uint16, owner, group uint32) (uint32, error) {

	dir, err := fs.getInode(parent)
	if err != nil {
		return NullInode, err
	}
	if dir.Type() != TypeDirectory {
		return NullInode, ErrNotADirectory
	}
	if len(name) == 0 || len(name) > MaxName {
		return NullInode, ErrNameTooLong
	}
	if _, err := fs.GetDirEntryByName(dir, name); err == nil {
		return NullInode, ErrAlreadyExists
	} else if err != ErrDoesNotExist {
		return NullInode, err
	}

	n, err := fs.AllocInode()
	if err != nil {
		return NullInode, err
	}

	ino := newInUseInode(t, perm, owner, group)
	ino.Links = 1
	if err := fs.putInode(n, ino); err != nil {
		return NullInode, err
	}

	if err := fs.AddDirEntry(parent, &dir, name, n); err != nil {
		fs.FreeInode(n)
		return NullInode, err
	}
	if err := fs.putInode(parent, dir); err != nil {
		return NullInode, err
	}

	return n, nil

}

// Mknod creates a regular file named name in directory parent.
func (fs *FileSystem) Mknod(parent uint32, name string, perm uint16, owner, group uint32) (uint32, error) {
	return fs.createChild(parent, name, TypeRegular, perm, owner, group)
}

// Symlink creates a symbolic link named name in directory parent, whose
// content is target.
func (fs *FileSystem) Symlink(parent uint32, name, target string, owner, group uint32) (uint32, error) {
	if len(target) > MaxPath {
		return NullInode, ErrNameTooLong
	}
	n, err := fs.createChild(parent, name, TypeSymlink, 0777, owner, group)
	if err != nil {
		return NullInode, err
	}
	ino, err := fs.getInode(n)
	if err != nil {
		return NullInode, err
	}
	if _, err := fs.WriteFileAt(n, &ino, 0, []byte(target)); err != nil {
		return NullInode, err
	}
	if err := fs.putInode(n, ino); err != nil {
		return NullInode, err
	}
	return n, nil
}

// Mkdir creates a directory named name in directory parent, pre-populated
// with "." and "..".
func (fs *FileSystem) Mkdir(parent uint32, name string, perm uint16, owner, group uint32) (uint32, error) {

	dirIno, err := fs.getInode(parent)
	if err != nil {
		return NullInode, err
	}
	if dirIno.Type() != TypeDirectory {
		return NullInode, ErrNotADirectory
	}

	n, err := fs.createChild(parent, name, TypeDirectory, perm, owner, group)
	if err != nil {
		return NullInode, err
	}

	child, err := fs.getInode(n)
	if err != nil {
		return NullInode, err
	}
	child.Links = 2
	if err := fs.AddDirEntry(n, &child, ".", n); err != nil {
		return NullInode, err
	}
	if err := fs.AddDirEntry(n, &child, "..", parent); err != nil {
		return NullInode, err
	}
	if err := fs.putInode(n, child); err != nil {
		return NullInode, err
	}

	dirIno, err = fs.getInode(parent)
	if err != nil {
		return NullInode, err
	}
	if err := dirIno.AddLink(); err != nil {
		return NullInode, err
	}
	if err := fs.putInode(parent, dirIno); err != nil {
		return NullInode, err
	}

	return n, nil

}

// Unlink removes a non-directory directory entry, freeing its inode once
// its link count reaches zero.
func (fs *FileSystem) Unlink(parent uint32, name string) error {

	dir, err := fs.getInode(parent)
	if err != nil {
		return err
	}
	if dir.Type() != TypeDirectory {
		return ErrNotADirectory
	}

	n, err := fs.GetDirEntryByName(dir, name)
	if err != nil {
		return err
	}
	ino, err := fs.getInode(n)
	if err != nil {
		return err
	}
	if ino.Type() == TypeDirectory {
		return ErrIsADirectory
	}

	if err := fs.RemoveDirEntry(dir, name); err != nil {
		return err
	}

	ino.RemoveLink()
	if ino.Links == 0 {
		if err := fs.Truncate(&ino, 0); err != nil {
			return err
		}
		if err := fs.putInode(n, ino); err != nil {
			return err
		}
		return fs.FreeInode(n)
	}
	return fs.putInode(n, ino)

}

// Rmdir removes an empty subdirectory.
func (fs *FileSystem) Rmdir(parent uint32, name string) error {

	if name == "." || name == ".." {
		return ErrInvalidArgument
	}

	dir, err := fs.getInode(parent)
	if err != nil {
		return err
	}
	n, err := fs.GetDirEntryByName(dir, name)
	if err != nil {
		return err
	}
	child, err := fs.getInode(n)
	if err != nil {
		return err
	}
	if child.Type() != TypeDirectory {
		return ErrNotADirectory
	}

	empty, err := fs.CheckDirectoryEmptiness(child)
	if err != nil {
		return err
	}
	if !empty {
		return ErrNotEmpty
	}

	if err := fs.RemoveDirEntry(dir, name); err != nil {
		return err
	}
	dir.RemoveLink()
	if err := fs.putInode(parent, dir); err != nil {
		return err
	}

	if err := fs.Truncate(&child, 0); err != nil {
		return err
	}
	child.Links = 0
	if err := fs.putInode(n, child); err != nil {
		return err
	}
	return fs.FreeInode(n)

}

// Link adds an additional name for an existing non-directory inode.
func (fs *FileSystem) Link(parent uint32, name string, target uint32) error {

	dir, err := fs.getInode(parent)
	if err != nil {
		return err
	}
	if dir.Type() != TypeDirectory {
		return ErrNotADirectory
	}

	ino, err := fs.getInode(target)
	if err != nil {
		return err
	}
	if ino.Type() == TypeDirectory {
		return ErrIsADirectory
	}
	if err := ino.AddLink(); err != nil {
		return err
	}

	if err := fs.AddDirEntry(parent, &dir, name, target); err != nil {
		return err
	}
	if err := fs.putInode(parent, dir); err != nil {
		return err
	}
	return fs.putInode(target, ino)

}

// Rename moves/renames a directory entry, atomically from the caller's
// point of view: detach from the old parent, attach to the new one.
func (fs *FileSystem) Rename(oldParent uint32, oldName string, newParent uint32, newName string) error {

	oldDir, err := fs.getInode(oldParent)
	if err != nil {
		return err
	}
	child, err := fs.GetDirEntryByName(oldDir, oldName)
	if err != nil {
		return err
	}
	childIno, err := fs.getInode(child)
	if err != nil {
		return err
	}

	newDir, err := fs.getInode(newParent)
	if err != nil {
		return err
	}
	if newDir.Type() != TypeDirectory {
		return ErrNotADirectory
	}

	if existing, err := fs.GetDirEntryByName(newDir, newName); err == nil {
		existingIno, err := fs.getInode(existing)
		if err != nil {
			return err
		}
		if existingIno.Type() == TypeDirectory {
			if childIno.Type() != TypeDirectory {
				return ErrIsADirectory
			}
			empty, err := fs.CheckDirectoryEmptiness(existingIno)
			if err != nil {
				return err
			}
			if !empty {
				return ErrNotEmpty
			}
		} else if childIno.Type() == TypeDirectory {
			return ErrNotADirectory
		}
		if err := fs.Unlink(newParent, newName); err != nil && err != ErrIsADirectory {
			return err
		}
		if existingIno.Type() == TypeDirectory {
			if err := fs.Rmdir(newParent, newName); err != nil {
				return err
			}
		}
	} else if err != ErrDoesNotExist {
		return err
	}

	if err := fs.RemoveDirEntry(oldDir, oldName); err != nil {
		return err
	}
	if err := fs.putInode(oldParent, oldDir); err != nil {
		return err
	}

	newDir, err = fs.getInode(newParent)
	if err != nil {
		return err
	}
	if err := fs.AddDirEntry(newParent, &newDir, newName, child); err != nil {
		return err
	}
	if err := fs.putInode(newParent, newDir); err != nil {
		return err
	}

	if childIno.Type() == TypeDirectory && oldParent != newParent {
		if err := fs.RemoveDirEntry(childIno, ".."); err != nil {
			return err
		}
		if err := fs.AddDirEntry(child, &childIno, "..", newParent); err != nil {
			return err
		}
		if err := fs.putInode(child, childIno); err != nil {
			return err
		}
		oldDir, err = fs.getInode(oldParent)
		if err != nil {
			return err
		}
		oldDir.RemoveLink()
		if err := fs.putInode(oldParent, oldDir); err != nil {
			return err
		}
		newDir, err = fs.getInode(newParent)
		if err != nil {
			return err
		}
		if err := newDir.AddLink(); err != nil {
			return err
		}
		if err := fs.putInode(newParent, newDir); err != nil {
			return err
		}
	}

	return nil

}

// ReadFile reads up to len(buf) bytes of inode n's content at offset.
func (fs *FileSystem) ReadFile(n uint32, offset int64, buf []byte) (int, error) {
	ino, err := fs.getInode(n)
	if err != nil {
		return 0, err
	}
	if ino.Type() == TypeDirectory {
		return 0, ErrIsADirectory
	}
	return fs.ReadFileAt(ino, offset, buf)
}

// WriteFile writes data into inode n's content at offset.
func (fs *FileSystem) WriteFile(n uint32, offset int64, data []byte) (int, error) {
	ino, err := fs.getInode(n)
	if err != nil {
		return 0, err
	}
	if ino.Type() == TypeDirectory {
		return 0, ErrIsADirectory
	}
	written, err := fs.WriteFileAt(n, &ino, offset, data)
	if err != nil {
		return written, err
	}
	return written, fs.putInode(n, ino)
}

// SetSize truncates or extends inode n's content to size bytes.
func (fs *FileSystem) SetSize(n uint32, size uint32) error {
	ino, err := fs.getInode(n)
	if err != nil {
		return err
	}
	if ino.Type() == TypeDirectory {
		return ErrIsADirectory
	}
	if err := fs.Truncate(&ino, size); err != nil {
		return err
	}
	return fs.putInode(n, ino)
}

// Readlink returns symlink inode n's target.
func (fs *FileSystem) Readlink(n uint32) (string, error) {
	ino, err := fs.getInode(n)
	if err != nil {
		return "", err
	}
	return fs.ReadSymlink(ino)
}

// Fsync flushes the cached blocks backing inode n's clusters, plus the
// superblock. SOFS has no per-inode dirty tracking finer than "the whole
// cache", so Fsync and the volume-wide Sync are the same operation.
func (fs *FileSystem) Fsync(n uint32) error {
	return fs.Sync()
}
