package sofs

// AllocInode pops one inode off the free-inode list, lazily
// cleans it of whatever it last held, and returns its number. The caller is
// responsible for installing the new inode's type, permissions and owner.
func (fs *FileSystem) AllocInode() (uint32, error) {

	sb, err := fs.superblock()
	if err != nil {
		return 0, err
	}

	if sb.IFree == 0 {
		return 0, ErrNoInodes
	}

	n := sb.IHead
	ino, err := fs.getInode(n)
	if err != nil {
		return 0, err
	}
	if !ino.IsFree() {
		return 0, ErrFreeDirtyInodeInvalid
	}

	next := ino.NextFree()
	sb.IHead = next
	if next == NullInode {
		sb.ITail = NullInode
	} else {
		nextIno, err := fs.getInode(next)
		if err != nil {
			return 0, err
		}
		nextIno.SetPrevFree(NullInode)
		if err := fs.putInode(next, nextIno); err != nil {
			return 0, err
		}
	}
	sb.IFree--

	if err := fs.putSuperblock(sb); err != nil {
		return 0, err
	}

	// n carries whatever direct/indirect references its previous life left
	// attached; FreeInode never walked them. Walk and free them now, before
	// the slot is handed out again.
	if err := fs.CleanInode(n); err != nil {
		return 0, err
	}

	clean := newInUseInode(TypeRegular, 0, 0, 0) // fresh identity, every reference NULL
	if err := fs.putInode(n, clean); err != nil {
		return 0, err
	}

	return n, nil

}

// FreeInode returns inode n to the free-inode list. The root inode can
// never be freed, and an inode still referenced by a directory entry
// (Links != 0) must be unlinked down to zero first. The direct/indirect
// reference fields are left exactly as they are — still pointing at
// whatever clusters n last held — and are only walked and released lazily,
// by CleanInode, when the slot is recycled.
func (fs *FileSystem) FreeInode(n uint32) error {

	if n == RootInode {
		return ErrOperationNotPermitted
	}

	sb, err := fs.superblock()
	if err != nil {
		return err
	}

	ino, err := fs.getInode(n)
	if err != nil {
		return err
	}
	if ino.IsFree() {
		return ErrFreeCleanInodeInvalid
	}
	if ino.Links != 0 {
		return ErrInvalidArgument
	}

	freed := freedInode(ino, sb.ITail, NullInode)
	if err := fs.putInode(n, freed); err != nil {
		return err
	}

	if sb.ITail != NullInode {
		tailIno, err := fs.getInode(sb.ITail)
		if err != nil {
			return err
		}
		tailIno.SetNextFree(n)
		if err := fs.putInode(sb.ITail, tailIno); err != nil {
			return err
		}
	} else {
		sb.IHead = n
	}
	sb.ITail = n
	sb.IFree++

	return fs.putSuperblock(sb)

}

// CleanInode walks free-dirty inode n's direct, single-indirect, and
// double-indirect references, frees every cluster still attached to them
// (including the indirect reference pages themselves), and dissociates
// them from n. On completion n has cluCount == 0 and every reference field
// NULL. Safe to call on an inode with no residual references at all.
func (fs *FileSystem) CleanInode(n uint32) error {

	if n == RootInode {
		return ErrOperationNotPermitted
	}

	ino, err := fs.getInode(n)
	if err != nil {
		return err
	}
	if !ino.IsFree() {
		return ErrFreeDirtyInodeInvalid
	}

	for i := range ino.Direct {
		if ino.Direct[i] == NullCluster {
			continue
		}
		if err := fs.FreeDataCluster(ino.Direct[i]); err != nil {
			return err
		}
		ino.Direct[i] = NullCluster
	}

	if ino.I1 != NullCluster {
		if err := fs.cleanRefPage(ino.I1); err != nil {
			return err
		}
		ino.I1 = NullCluster
	}

	if ino.I2 != NullCluster {
		sb, err := fs.superblock()
		if err != nil {
			return err
		}
		for i := 0; i < RPC; i++ {
			page, err := fs.readRefEntry(sb, ino.I2, int64(i))
			if err != nil {
				return err
			}
			if page == NullCluster {
				continue
			}
			if err := fs.cleanRefPage(page); err != nil {
				return err
			}
		}
		if err := fs.FreeDataCluster(ino.I2); err != nil {
			return err
		}
		ino.I2 = NullCluster
	}

	ino.CluCount = 0
	return fs.putInode(n, ino)

}

// cleanRefPage frees every data cluster named by a single- or
// double-indirect reference page, then frees the page itself.
func (fs *FileSystem) cleanRefPage(page uint32) error {
	sb, err := fs.superblock()
	if err != nil {
		return err
	}
	for i := 0; i < RPC; i++ {
		c, err := fs.readRefEntry(sb, page, int64(i))
		if err != nil {
			return err
		}
		if c == NullCluster {
			continue
		}
		if err := fs.FreeDataCluster(c); err != nil {
			return err
		}
	}
	return fs.FreeDataCluster(page)
}
