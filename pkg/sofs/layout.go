package sofs

// Package sofs implements the on-disk engine of SOFS: superblock, inode
// table, clustered data zone, free-inode and free-cluster management, the
// multi-level file-cluster index, directory encoding, and path resolution.
// Everything above this layer (the VFS adapter, the formatting/mount CLIs,
// and the raw host-file I/O) is an external collaborator; this package only
// consumes the raw operations described by the Device interface.

const (
	// BlockSize is the fixed size, in bytes, of one device block.
	BlockSize = 512

	// BlocksPerCluster is the number of contiguous blocks making up one
	// cluster of the data zone.
	BlocksPerCluster = 4

	// ClusterSize is the fixed size, in bytes, of one data-zone cluster.
	ClusterSize = BlockSize * BlocksPerCluster
)

const (
	// NDirect is the number of direct cluster references carried in every
	// inode.
	NDirect = 7

	// RPC is the number of logical cluster references that fit in the body
	// of one reference cluster (the 12-byte prev/next/stat header occupies
	// three reference-sized slots).
	RPC = (ClusterSize - ClusterHeaderSize) / 4

	// ClusterHeaderSize is the size, in bytes, of a data cluster's
	// {prev, next, stat} header.
	ClusterHeaderSize = 12

	// BSLPC is the number of body bytes available per cluster once the
	// header is accounted for.
	BSLPC = ClusterSize - ClusterHeaderSize

	// MaxFileClusters is the number of logical clusters representable by an
	// inode's direct/single-indirect/double-indirect reference tree; valid
	// logical indices run from 0 to MaxFileClusters-1.
	MaxFileClusters = NDirect + RPC + RPC*RPC
)

const (
	// MaxName is the longest file name component SOFS allows, not counting
	// the trailing NUL.
	MaxName = 59

	// dirEntrySize is the on-disk size of one directory entry:
	// name[MaxName+1] + nInode(uint32).
	dirEntrySize = (MaxName + 1) + 4

	// DPC is the number of directory entries that fit in a directory
	// cluster's body (BSLPC bytes), rounded down — the remainder is
	// zero-padded and never addressed.
	DPC = BSLPC / dirEntrySize

	// MaxPath is the longest absolute path SOFS will resolve.
	MaxPath = 1024
)

// InodeSize is the fixed on-disk size of one inode record (bytes).
const InodeSize = 64

// IPB is the number of inodes packed into one inode-table block.
const IPB = BlockSize / InodeSize

// DZC is the capacity of the superblock's retrieval and insertion free-
// cluster caches.
const DZC = 50

// Sentinel values. Both share the same bit pattern: an index field can
// never legitimately need both meanings at once.
const (
	NullCluster uint32 = 0xFFFFFFFF
	NullInode   uint32 = 0xFFFFFFFF
)

// RootInode is the inode number permanently assigned to the root directory.
const RootInode uint32 = 0

// refCountSaturated is the sentinel value of Inode.Links at which any
// further hard link must be rejected with ErrHardlinkLimit.
const refCountSaturated uint16 = 0xFFFF

func divide(a, b int64) int64 {
	return (a + b - 1) / b
}
