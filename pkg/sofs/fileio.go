package sofs

// ReadFileAt fills buf with up to len(buf) bytes of inode n's content
// starting at offset, returning the number of bytes actually copied (short
// of len(buf) once offset+n reaches ino.Size, same convention as io.ReaderAt
// without the trailing io.EOF).
func (fs *FileSystem) ReadFileAt(ino Inode, offset int64, buf []byte) (int, error) {

	if offset < 0 {
		return 0, ErrInvalidArgument
	}

	sb, err := fs.superblock()
	if err != nil {
		return 0, err
	}

	total := 0
	remaining := int64(ino.Size) - offset
	if remaining <= 0 {
		return 0, nil
	}
	if remaining < int64(len(buf)) {
		buf = buf[:remaining]
	}

	for total < len(buf) {

		pos := offset + int64(total)
		index, within := filePosition(pos)

		cluster, err := fs.GetCluster(ino, index)
		if err == ErrClusterMappingInvalid {
			n := copy(buf[total:], make([]byte, BSLPC-within))
			total += n
			continue
		}
		if err != nil {
			return total, err
		}

		var body [BSLPC]byte
		if err := fs.meta.ReadBody(sb, cluster, body[:]); err != nil {
			return total, err
		}

		n := copy(buf[total:], body[within:])
		total += n

	}

	return total, nil

}

// WriteFileAt writes data into inode n's content at offset, allocating
// clusters as needed and growing ino.Size/ino.CluCount. ino is mutated in
// place; the caller persists it.
func (fs *FileSystem) WriteFileAt(n uint32, ino *Inode, offset int64, data []byte) (int, error) {

	if offset < 0 {
		return 0, ErrInvalidArgument
	}

	endIndex, _ := filePosition(offset + int64(len(data)) - 1)
	if len(data) > 0 && endIndex >= MaxFileClusters {
		return 0, ErrFileTooLarge
	}

	sb, err := fs.superblock()
	if err != nil {
		return 0, err
	}

	total := 0
	for total < len(data) {

		pos := offset + int64(total)
		index, within := filePosition(pos)

		cluster, err := fs.AllocCluster(n, ino, index)
		if err != nil {
			return total, err
		}
		if index >= int64(ino.CluCount) {
			ino.CluCount = uint32(index + 1)
		}

		chunk := BSLPC - within
		if chunk > len(data)-total {
			chunk = len(data) - total
		}

		if err := fs.meta.WriteBody(sb, cluster, within, data[total:total+chunk]); err != nil {
			return total, err
		}

		total += chunk

	}

	if end := uint32(offset) + uint32(total); end > ino.Size {
		ino.Size = end
	}

	return total, nil

}

// Truncate resizes inode ino's content to exactly size bytes, freeing
// trailing clusters if shrinking. Growth never allocates clusters for the
// grown region; those logical clusters stay unmapped (GetCluster reports
// ErrClusterMappingInvalid for them) and ReadFileAt reads them as zeros.
func (fs *FileSystem) Truncate(ino *Inode, size uint32) error {

	newCount := divide(int64(size), BSLPC)
	if size == 0 {
		newCount = 0
	}

	if int64(ino.CluCount) > newCount {
		if err := fs.TruncateClusters(ino, newCount); err != nil {
			return err
		}
	}

	ino.Size = size
	return nil

}
