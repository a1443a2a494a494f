package sofs

// The free-cluster manager keeps two small LIFO caches in the superblock
// (retrieval and insertion, each up to DZC entries) in front of a general
// repository: a doubly-linked list of free clusters threaded through their
// own on-disk {prev, next} header, with its head/tail also kept in the
// superblock. AllocDataCluster only ever pops the retrieval cache, refilling
// it from the repository (replenish) when empty; FreeDataCluster only ever
// pushes the insertion cache, draining it to the repository (deplete) when
// full. Most alloc/free traffic therefore never touches the repository's
// on-disk links at all.

// Replenish moves up to DZC clusters from the repository head into the
// retrieval cache. Returns ErrNoSpaceOnDevice if the repository is already
// empty and the retrieval cache stays empty.
func (fs *FileSystem) replenish(sb *Superblock) error {

	sb.RetrievalIdx = 0

	for sb.RetrievalIdx < DZC && sb.DHead != NullCluster {

		c := sb.DHead
		hdr, err := fs.meta.readClusterHeader(*sb, c)
		if err != nil {
			return err
		}

		sb.DHead = hdr.next
		if sb.DHead == NullCluster {
			sb.DTail = NullCluster
		} else {
			nextHdr, err := fs.meta.readClusterHeader(*sb, sb.DHead)
			if err != nil {
				return err
			}
			nextHdr.prev = NullCluster
			if err := fs.meta.writeClusterHeader(*sb, sb.DHead, nextHdr); err != nil {
				return err
			}
		}

		sb.RetrievalCache[sb.RetrievalIdx] = c
		sb.RetrievalIdx++

	}

	if sb.RetrievalIdx == 0 {
		return ErrNoSpaceOnDevice
	}
	return nil

}

// deplete appends every cluster currently in the insertion cache to the
// repository tail, threading them together with the rest of the repository
// through their on-disk headers, and empties the insertion cache. Each
// cluster's stat field — set by FreeDataCluster to the prior owner, and
// left alone here — is what marks it dirty-free until AllocDataCluster
// cleans it.
func (fs *FileSystem) deplete(sb *Superblock) error {

	for i := 0; i < int(sb.InsertionIdx); i++ {

		c := sb.InsertionCache[i]
		hdr, err := fs.meta.readClusterHeader(*sb, c)
		if err != nil {
			return err
		}
		hdr.prev = sb.DTail
		hdr.next = NullCluster

		if sb.DTail != NullCluster {
			tailHdr, err := fs.meta.readClusterHeader(*sb, sb.DTail)
			if err != nil {
				return err
			}
			tailHdr.next = c
			if err := fs.meta.writeClusterHeader(*sb, sb.DTail, tailHdr); err != nil {
				return err
			}
		} else {
			sb.DHead = c
		}

		if err := fs.meta.writeClusterHeader(*sb, c, hdr); err != nil {
			return err
		}
		sb.DTail = c

	}

	sb.InsertionIdx = 0
	return nil

}

// AllocDataCluster removes one cluster from the free-cluster manager on
// behalf of nInode — which must name an in-use inode — and returns its
// index. A dirty-free cluster (one whose stat still names a prior owner)
// is cleaned before being handed over; its header is then rewritten with
// prev = next = NULL and stat = nInode.
func (fs *FileSystem) AllocDataCluster(nInode uint32) (uint32, error) {

	owner, err := fs.getInode(nInode)
	if err != nil {
		return NullCluster, err
	}
	if owner.IsFree() {
		return NullCluster, ErrInUseInodeInvalid
	}

	sb, err := fs.superblock()
	if err != nil {
		return NullCluster, err
	}

	if sb.RetrievalIdx == 0 {
		if err := fs.replenish(&sb); err != nil {
			return NullCluster, err
		}
	}

	sb.RetrievalIdx--
	c := sb.RetrievalCache[sb.RetrievalIdx]
	sb.DZoneFree--

	if err := fs.putSuperblock(sb); err != nil {
		return NullCluster, err
	}

	hdr, err := fs.meta.readClusterHeader(sb, c)
	if err != nil {
		return NullCluster, err
	}
	if hdr.stat != NullInode {
		if err := fs.CleanDataCluster(c, hdr.stat); err != nil {
			return NullCluster, err
		}
	}

	hdr = clusterHeader{prev: NullCluster, next: NullCluster, stat: nInode}
	if err := fs.meta.writeClusterHeader(sb, c, hdr); err != nil {
		return NullCluster, err
	}

	return c, nil

}

// CleanDataCluster zeros cluster c's body, discarding the stale content
// left behind by its previous owner prevOwner. Called by AllocDataCluster
// when the cluster it just drew from the free-cluster manager is still
// dirty-free.
func (fs *FileSystem) CleanDataCluster(c uint32, prevOwner uint32) error {
	sb, err := fs.superblock()
	if err != nil {
		return err
	}
	var zero [BSLPC]byte
	return fs.meta.WriteBody(sb, c, 0, zero[:])
}

// FreeDataCluster returns cluster c to the free-cluster manager. Its
// prev/next are reset to NULL immediately; stat is left intact, so the
// cluster is now dirty-free until some future AllocDataCluster cleans it.
func (fs *FileSystem) FreeDataCluster(c uint32) error {

	sb, err := fs.superblock()
	if err != nil {
		return err
	}

	if c >= sb.DZoneTotal {
		return ErrInvalidArgument
	}

	hdr, err := fs.meta.readClusterHeader(sb, c)
	if err != nil {
		return err
	}
	hdr.prev = NullCluster
	hdr.next = NullCluster
	if err := fs.meta.writeClusterHeader(sb, c, hdr); err != nil {
		return err
	}

	if sb.InsertionIdx == DZC {
		if err := fs.deplete(&sb); err != nil {
			return err
		}
	}

	sb.InsertionCache[sb.InsertionIdx] = c
	sb.InsertionIdx++
	sb.DZoneFree++

	return fs.putSuperblock(sb)

}
