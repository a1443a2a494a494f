package sofs

import "strings"

const symlinkBudget = 1

const (
	permX uint16 = 0o1
	permR uint16 = 0o4
)

// ResolvePath resolves an absolute path to its inode number and inode as
// uid/gid, following at most one symlink indirection anywhere along the
// way — a second symlink encountered during the same resolution fails
// with ErrTooManyLinks rather than looping indefinitely. Every directory
// traversed along the way must grant uid/gid search (X) permission, and
// a symlink being dereferenced must grant read (R) and search (X).
func (fs *FileSystem) ResolvePath(path string, uid, gid uint32) (uint32, Inode, error) {
	return fs.resolvePath(path, uid, gid, symlinkBudget)
}

func (fs *FileSystem) resolvePath(path string, uid, gid uint32, budget int) (uint32, Inode, error) {

	if !strings.HasPrefix(path, "/") {
		return NullInode, Inode{}, ErrRelativePath
	}
	if len(path) > MaxPath {
		return NullInode, Inode{}, ErrInvalidArgument
	}

	segs := splitPath(path)

	curNum := RootInode
	curIno, err := fs.getInode(RootInode)
	if err != nil {
		return NullInode, Inode{}, err
	}

	for i, seg := range segs {

		if curIno.Type() != TypeDirectory {
			return NullInode, Inode{}, ErrNotADirectory
		}
		if err := fs.Access(curNum, uid, gid, permX); err != nil {
			return NullInode, Inode{}, err
		}

		childNum, err := fs.GetDirEntryByName(curIno, seg)
		if err != nil {
			return NullInode, Inode{}, err
		}
		childIno, err := fs.getInode(childNum)
		if err != nil {
			return NullInode, Inode{}, err
		}

		if childIno.Type() == TypeSymlink {
			if budget <= 0 {
				return NullInode, Inode{}, ErrTooManyLinks
			}
			if err := fs.Access(childNum, uid, gid, permR|permX); err != nil {
				return NullInode, Inode{}, err
			}
			target, err := fs.ReadSymlink(childIno)
			if err != nil {
				return NullInode, Inode{}, err
			}
			if rest := segs[i+1:]; len(rest) > 0 {
				target = strings.TrimRight(target, "/") + "/" + strings.Join(rest, "/")
			}
			return fs.resolvePath(target, uid, gid, budget-1)
		}

		curNum, curIno = childNum, childIno

	}

	return curNum, curIno, nil

}

// ResolveParent resolves path down to its final component's parent
// directory, returning that directory's inode plus the leaf name still to
// be looked up (or created) within it.
func (fs *FileSystem) ResolveParent(path string, uid, gid uint32) (uint32, Inode, string, error) {

	if !strings.HasPrefix(path, "/") {
		return NullInode, Inode{}, "", ErrRelativePath
	}

	segs := splitPath(path)
	if len(segs) == 0 {
		return NullInode, Inode{}, "", ErrInvalidArgument
	}

	parentPath := "/" + strings.Join(segs[:len(segs)-1], "/")
	parentNum, parentIno, err := fs.ResolvePath(parentPath, uid, gid)
	if err != nil {
		return NullInode, Inode{}, "", err
	}
	if parentIno.Type() != TypeDirectory {
		return NullInode, Inode{}, "", ErrNotADirectory
	}

	return parentNum, parentIno, segs[len(segs)-1], nil

}

func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// ReadSymlink returns a symlink inode's target path.
func (fs *FileSystem) ReadSymlink(ino Inode) (string, error) {
	if ino.Type() != TypeSymlink {
		return "", ErrInvalidArgument
	}
	if ino.Size > MaxPath {
		return "", ErrDirectoryEntryInvalid
	}
	buf := make([]byte, ino.Size)
	if _, err := fs.ReadFileAt(ino, 0, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
