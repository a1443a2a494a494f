package sofs

// The file-cluster mapper translates a file's logical cluster index into a
// physical data-zone cluster, walking the inode's direct references, then
// its single-indirect page, then its double-indirect page of pages.
// Logical index ranges:
//
//	[0, NDirect)                               direct
//	[NDirect, NDirect+RPC)                      single-indirect
//	[NDirect+RPC, NDirect+RPC+RPC*RPC)          double-indirect

func singleIndirectRange(index int64) (int64, bool) {
	rel := index - NDirect
	if rel >= 0 && rel < RPC {
		return rel, true
	}
	return 0, false
}

func doubleIndirectRange(index int64) (i1, i2 int64, ok bool) {
	rel := index - NDirect - RPC
	if rel < 0 || rel >= RPC*RPC {
		return 0, 0, false
	}
	return rel / RPC, rel % RPC, true
}

func (fs *FileSystem) readRefEntry(sb Superblock, page uint32, i int64) (uint32, error) {
	if err := fs.meta.LoadRefCluster(sb, page); err != nil {
		return 0, err
	}
	rc, err := fs.meta.RefCluster()
	if err != nil {
		return 0, err
	}
	return rc[i], nil
}

func (fs *FileSystem) writeRefEntry(sb Superblock, page uint32, i int64, v uint32) error {
	if err := fs.meta.LoadRefCluster(sb, page); err != nil {
		return err
	}
	if err := fs.meta.SetRefEntry(int(i), v); err != nil {
		return err
	}
	return fs.meta.StoreRefCluster(sb)
}

// allocIndirectPage allocates a fresh reference cluster, zeroes every entry
// to NullCluster, and returns its physical index. It is not itself a
// logical file cluster, so it never joins the sibling chain.
func (fs *FileSystem) allocIndirectPage(nInode uint32) (uint32, error) {
	page, err := fs.AllocDataCluster(nInode)
	if err != nil {
		return NullCluster, err
	}
	sb, err := fs.superblock()
	if err != nil {
		return NullCluster, err
	}
	var rc refCluster
	for i := range rc {
		rc[i] = NullCluster
	}
	if err := fs.meta.LoadRefCluster(sb, page); err != nil {
		return NullCluster, err
	}
	for i := 0; i < RPC; i++ {
		if err := fs.meta.SetRefEntry(i, NullCluster); err != nil {
			return NullCluster, err
		}
	}
	if err := fs.meta.StoreRefCluster(sb); err != nil {
		return NullCluster, err
	}
	return page, nil
}

// GetCluster looks up the physical cluster backing logical index, without
// allocating. Returns ErrClusterMappingInvalid if no cluster is mapped
// there yet.
func (fs *FileSystem) GetCluster(ino Inode, index int64) (uint32, error) {

	if index < 0 || index >= MaxFileClusters {
		return NullCluster, ErrInvalidArgument
	}

	if index < NDirect {
		c := ino.Direct[index]
		if c == NullCluster {
			return NullCluster, ErrClusterMappingInvalid
		}
		return c, nil
	}

	sb, err := fs.superblock()
	if err != nil {
		return NullCluster, err
	}

	if rel, ok := singleIndirectRange(index); ok {
		if ino.I1 == NullCluster {
			return NullCluster, ErrClusterMappingInvalid
		}
		c, err := fs.readRefEntry(sb, ino.I1, rel)
		if err != nil {
			return NullCluster, err
		}
		if c == NullCluster {
			return NullCluster, ErrClusterMappingInvalid
		}
		return c, nil
	}

	if i1, i2, ok := doubleIndirectRange(index); ok {
		if ino.I2 == NullCluster {
			return NullCluster, ErrClusterMappingInvalid
		}
		page, err := fs.readRefEntry(sb, ino.I2, i1)
		if err != nil {
			return NullCluster, err
		}
		if page == NullCluster {
			return NullCluster, ErrClusterMappingInvalid
		}
		c, err := fs.readRefEntry(sb, page, i2)
		if err != nil {
			return NullCluster, err
		}
		if c == NullCluster {
			return NullCluster, ErrClusterMappingInvalid
		}
		return c, nil
	}

	return NullCluster, ErrInvalidArgument

}

// attachLogicalCluster stitches newly allocated cluster c — sitting at
// logical index idx of ino — into the file's sibling chain: it reads
// neighbors idx-1 and idx+1 via GetCluster, records them in c's own
// prev/next, and rewrites each neighbor's header to point back at c.
func (fs *FileSystem) attachLogicalCluster(ino *Inode, idx int64, c uint32) error {

	sb, err := fs.superblock()
	if err != nil {
		return err
	}

	hdr, err := fs.meta.readClusterHeader(sb, c)
	if err != nil {
		return err
	}

	if idx > 0 {
		prev, err := fs.GetCluster(*ino, idx-1)
		if err != nil && err != ErrClusterMappingInvalid {
			return err
		}
		if err == nil {
			hdr.prev = prev
			prevHdr, err := fs.meta.readClusterHeader(sb, prev)
			if err != nil {
				return err
			}
			prevHdr.next = c
			if err := fs.meta.writeClusterHeader(sb, prev, prevHdr); err != nil {
				return err
			}
		}
	}

	if idx+1 < MaxFileClusters {
		next, err := fs.GetCluster(*ino, idx+1)
		if err != nil && err != ErrClusterMappingInvalid {
			return err
		}
		if err == nil {
			hdr.next = next
			nextHdr, err := fs.meta.readClusterHeader(sb, next)
			if err != nil {
				return err
			}
			nextHdr.prev = c
			if err := fs.meta.writeClusterHeader(sb, next, nextHdr); err != nil {
				return err
			}
		}
	}

	return fs.meta.writeClusterHeader(sb, c, hdr)

}

// detachLogicalCluster relinks c's neighbors around it, ahead of c being
// returned to the free-cluster manager. Must be called before
// FreeDataCluster(c), which overwrites c's own prev/next.
func (fs *FileSystem) detachLogicalCluster(sb Superblock, c uint32) error {

	hdr, err := fs.meta.readClusterHeader(sb, c)
	if err != nil {
		return err
	}

	if hdr.prev != NullCluster {
		prevHdr, err := fs.meta.readClusterHeader(sb, hdr.prev)
		if err != nil {
			return err
		}
		prevHdr.next = hdr.next
		if err := fs.meta.writeClusterHeader(sb, hdr.prev, prevHdr); err != nil {
			return err
		}
	}

	if hdr.next != NullCluster {
		nextHdr, err := fs.meta.readClusterHeader(sb, hdr.next)
		if err != nil {
			return err
		}
		nextHdr.prev = hdr.prev
		if err := fs.meta.writeClusterHeader(sb, hdr.next, nextHdr); err != nil {
			return err
		}
	}

	return nil

}

// AllocCluster looks up the cluster backing logical index, allocating it
// (and any indirect pages needed to address it) if it is not mapped yet,
// on behalf of inode n (whose in-memory copy is ino). ino is mutated in
// place; the caller persists it.
func (fs *FileSystem) AllocCluster(n uint32, ino *Inode, index int64) (uint32, error) {

	if index < 0 || index >= MaxFileClusters {
		return NullCluster, ErrFileTooLarge
	}

	if index < NDirect {
		if ino.Direct[index] != NullCluster {
			return ino.Direct[index], nil
		}
		c, err := fs.AllocDataCluster(n)
		if err != nil {
			return NullCluster, err
		}
		ino.Direct[index] = c
		if err := fs.attachLogicalCluster(ino, index, c); err != nil {
			return NullCluster, err
		}
		return c, nil
	}

	sb, err := fs.superblock()
	if err != nil {
		return NullCluster, err
	}

	if rel, ok := singleIndirectRange(index); ok {
		if ino.I1 == NullCluster {
			page, err := fs.allocIndirectPage(n)
			if err != nil {
				return NullCluster, err
			}
			ino.I1 = page
		}
		existing, err := fs.readRefEntry(sb, ino.I1, rel)
		if err != nil {
			return NullCluster, err
		}
		if existing != NullCluster {
			return existing, nil
		}
		c, err := fs.AllocDataCluster(n)
		if err != nil {
			return NullCluster, err
		}
		if err := fs.writeRefEntry(sb, ino.I1, rel, c); err != nil {
			return NullCluster, err
		}
		if err := fs.attachLogicalCluster(ino, index, c); err != nil {
			return NullCluster, err
		}
		return c, nil
	}

	if i1, i2, ok := doubleIndirectRange(index); ok {
		if ino.I2 == NullCluster {
			page, err := fs.allocIndirectPage(n)
			if err != nil {
				return NullCluster, err
			}
			ino.I2 = page
		}
		page, err := fs.readRefEntry(sb, ino.I2, i1)
		if err != nil {
			return NullCluster, err
		}
		if page == NullCluster {
			page, err = fs.allocIndirectPage(n)
			if err != nil {
				return NullCluster, err
			}
			if err := fs.writeRefEntry(sb, ino.I2, i1, page); err != nil {
				return NullCluster, err
			}
		}
		existing, err := fs.readRefEntry(sb, page, i2)
		if err != nil {
			return NullCluster, err
		}
		if existing != NullCluster {
			return existing, nil
		}
		c, err := fs.AllocDataCluster(n)
		if err != nil {
			return NullCluster, err
		}
		if err := fs.writeRefEntry(sb, page, i2, c); err != nil {
			return NullCluster, err
		}
		if err := fs.attachLogicalCluster(ino, index, c); err != nil {
			return NullCluster, err
		}
		return c, nil
	}

	return NullCluster, ErrFileTooLarge

}

// TruncateClusters frees every cluster whose logical index is >= newCount
// and, once a whole indirect page's worth of clusters has been released,
// frees the page itself. ino is mutated in place; the caller persists it.
func (fs *FileSystem) TruncateClusters(ino *Inode, newCount int64) error {

	sb, err := fs.superblock()
	if err != nil {
		return err
	}

	old := int64(ino.CluCount)

	for idx := old - 1; idx >= newCount; idx-- {

		switch {

		case idx < NDirect:
			if ino.Direct[idx] != NullCluster {
				if err := fs.detachLogicalCluster(sb, ino.Direct[idx]); err != nil {
					return err
				}
				if err := fs.FreeDataCluster(ino.Direct[idx]); err != nil {
					return err
				}
				ino.Direct[idx] = NullCluster
			}

		default:
			if rel, ok := singleIndirectRange(idx); ok {
				if ino.I1 != NullCluster {
					c, err := fs.readRefEntry(sb, ino.I1, rel)
					if err != nil {
						return err
					}
					if c != NullCluster {
						if err := fs.detachLogicalCluster(sb, c); err != nil {
							return err
						}
						if err := fs.FreeDataCluster(c); err != nil {
							return err
						}
						if err := fs.writeRefEntry(sb, ino.I1, rel, NullCluster); err != nil {
							return err
						}
					}
				}
				if rel == 0 && newCount <= NDirect && ino.I1 != NullCluster {
					if err := fs.FreeDataCluster(ino.I1); err != nil {
						return err
					}
					ino.I1 = NullCluster
				}
				continue
			}

			if i1, i2, ok := doubleIndirectRange(idx); ok {
				if ino.I2 != NullCluster {
					page, err := fs.readRefEntry(sb, ino.I2, i1)
					if err != nil {
						return err
					}
					if page != NullCluster {
						c, err := fs.readRefEntry(sb, page, i2)
						if err != nil {
							return err
						}
						if c != NullCluster {
							if err := fs.detachLogicalCluster(sb, c); err != nil {
								return err
							}
							if err := fs.FreeDataCluster(c); err != nil {
								return err
							}
							if err := fs.writeRefEntry(sb, page, i2, NullCluster); err != nil {
								return err
							}
						}
						if i2 == 0 {
							if err := fs.FreeDataCluster(page); err != nil {
								return err
							}
							if err := fs.writeRefEntry(sb, ino.I2, i1, NullCluster); err != nil {
								return err
							}
						}
					}
				}
				if newCount <= NDirect+RPC && i1 == 0 && i2 == 0 && ino.I2 != NullCluster {
					if err := fs.FreeDataCluster(ino.I2); err != nil {
						return err
					}
					ino.I2 = NullCluster
				}
			}
		}

	}

	ino.CluCount = uint32(newCount)
	return nil

}
