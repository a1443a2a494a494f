package sofs

import (
	"bytes"
	"strings"
)

// dirEntry is one 64-byte slot of a directory cluster: a NUL-padded name and
// the inode it names. Inode == NullInode marks an unused (free) slot.
type dirEntry struct {
	Name  [MaxName + 1]byte
	Inode uint32
}

func (e dirEntry) name() string {
	i := bytes.IndexByte(e.Name[:], 0)
	if i < 0 {
		i = len(e.Name)
	}
	return string(e.Name[:i])
}

func makeDirEntry(name string, inode uint32) dirEntry {
	var e dirEntry
	copy(e.Name[:], name)
	e.Inode = inode
	return e
}

func (e dirEntry) marshal() [dirEntrySize]byte {
	var buf [dirEntrySize]byte
	copy(buf[:MaxName+1], e.Name[:])
	putLE32(buf[MaxName+1:], e.Inode)
	return buf
}

func (e *dirEntry) unmarshal(buf []byte) {
	copy(e.Name[:], buf[:MaxName+1])
	e.Inode = le32(buf[MaxName+1:])
}

// forEachDirEntry visits every slot of every cluster of a directory, in
// (cluster index, slot index) order, until visit returns true (stop) or
// every cluster has been scanned.
func (fs *FileSystem) forEachDirEntry(ino Inode, visit func(cluster int64, slot int, e dirEntry) (stop bool)) error {

	for cIdx := int64(0); cIdx < int64(ino.CluCount); cIdx++ {

		phys, err := fs.GetCluster(ino, cIdx)
		if err != nil {
			return err
		}

		sb, err := fs.superblock()
		if err != nil {
			return err
		}
		var body [BSLPC]byte
		if err := fs.meta.ReadBody(sb, phys, body[:]); err != nil {
			return err
		}

		for slot := 0; slot < DPC; slot++ {
			var e dirEntry
			e.unmarshal(body[slot*dirEntrySize:])
			if visit(cIdx, slot, e) {
				return nil
			}
		}

	}

	return nil

}

// GetDirEntryByName looks up name among ino's entries. Returns
// ErrDoesNotExist if not found.
func (fs *FileSystem) GetDirEntryByName(ino Inode, name string) (uint32, error) {

	if len(name) == 0 || len(name) > MaxName {
		return NullInode, ErrNameTooLong
	}
	if strings.Contains(name, "/") {
		return NullInode, ErrInvalidArgument
	}

	found := NullInode
	err := fs.forEachDirEntry(ino, func(_ int64, _ int, e dirEntry) bool {
		if e.Inode != NullInode && e.name() == name {
			found = e.Inode
			return true
		}
		return false
	})
	if err != nil {
		return NullInode, err
	}
	if found == NullInode {
		return NullInode, ErrDoesNotExist
	}
	return found, nil

}

func (fs *FileSystem) writeDirSlot(ino Inode, cluster int64, slot int, e dirEntry) error {
	sb, err := fs.superblock()
	if err != nil {
		return err
	}
	phys, err := fs.GetCluster(ino, cluster)
	if err != nil {
		return err
	}
	buf := e.marshal()
	return fs.meta.WriteBody(sb, phys, slot*dirEntrySize, buf[:])
}

// zeroDirCluster fills a freshly allocated directory cluster with empty
// slots (Inode == NullInode).
func (fs *FileSystem) zeroDirCluster(sb Superblock, phys uint32) error {
	var body [BSLPC]byte
	empty := makeDirEntry("", NullInode).marshal()
	for slot := 0; slot < DPC; slot++ {
		copy(body[slot*dirEntrySize:], empty[:])
	}
	return fs.meta.WriteBody(sb, phys, 0, body[:])
}

// AddDirEntry installs name -> child in the first free slot of the
// directory named by inode n (whose in-memory copy is ino), allocating a
// new directory cluster if every existing one is full. ino is mutated in
// place (CluCount/Size may grow); the caller persists it. Used both for
// ordinary creation and for the attach half of a rename.
func (fs *FileSystem) AddDirEntry(n uint32, ino *Inode, name string, child uint32) error {

	if len(name) == 0 || len(name) > MaxName {
		return ErrNameTooLong
	}
	if strings.Contains(name, "/") {
		return ErrInvalidArgument
	}

	if _, err := fs.GetDirEntryByName(*ino, name); err == nil {
		return ErrAlreadyExists
	} else if err != ErrDoesNotExist {
		return err
	}

	placed := false
	var targetCluster int64
	var targetSlot int

	_ = fs.forEachDirEntry(*ino, func(c int64, s int, e dirEntry) bool {
		if e.Inode == NullInode {
			placed = true
			targetCluster = c
			targetSlot = s
			return true
		}
		return false
	})

	if !placed {
		targetCluster = int64(ino.CluCount)
		targetSlot = 0
		phys, err := fs.AllocCluster(n, ino, targetCluster)
		if err != nil {
			return err
		}
		sb, err := fs.superblock()
		if err != nil {
			return err
		}
		if err := fs.zeroDirCluster(sb, phys); err != nil {
			return err
		}
		if targetCluster >= int64(ino.CluCount) {
			ino.CluCount = uint32(targetCluster + 1)
		}
		ino.Size = ino.CluCount * BSLPC
	}

	return fs.writeDirSlot(*ino, targetCluster, targetSlot, makeDirEntry(name, child))

}

// RemoveDirEntry clears the slot naming name, freeing it for reuse. The
// directory's cluster count is never shrunk by removal alone — directories
// never compact. Used both for ordinary unlink and for the detach half of a
// rename.
func (fs *FileSystem) RemoveDirEntry(ino Inode, name string) error {

	found := false
	var targetCluster int64
	var targetSlot int

	err := fs.forEachDirEntry(ino, func(c int64, s int, e dirEntry) bool {
		if e.Inode != NullInode && e.name() == name {
			found = true
			targetCluster = c
			targetSlot = s
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrDoesNotExist
	}

	return fs.writeDirSlot(ino, targetCluster, targetSlot, makeDirEntry("", NullInode))

}

// CheckDirectoryEmptiness reports whether ino (a directory) contains
// anything besides "." and "..".
func (fs *FileSystem) CheckDirectoryEmptiness(ino Inode) (bool, error) {

	count := 0
	err := fs.forEachDirEntry(ino, func(_ int64, _ int, e dirEntry) bool {
		if e.Inode == NullInode {
			return false
		}
		n := e.name()
		if n != "." && n != ".." {
			count++
			return true
		}
		return false
	})
	if err != nil {
		return false, err
	}
	return count == 0, nil

}
