package sofs

import (
	"io"
	"os"
)

// Device is the raw block-addressable backing store the core is built on.
// It is satisfied by *FileDevice, which wraps an *os.File over an ordinary
// host file acting as a simulated disk, but any implementation giving
// fixed-size block/cluster read-write semantics will do.
type Device interface {
	ReadBlockAt(block int64, buf []byte) error
	WriteBlockAt(block int64, buf []byte) error
	ReadClusterAt(cluster int64, buf []byte) error
	WriteClusterAt(cluster int64, buf []byte) error
	TotalBlocks() int64
	Close() error
}

// FileDevice is a Device backed by an *os.File. Exactly one may be open at a
// time per process.
type FileDevice struct {
	f      *os.File
	blocks int64
}

var deviceOpen bool

// OpenDevice opens path as the backing store. The file size must already be
// a multiple of BlockSize.
func OpenDevice(path string) (*FileDevice, error) {

	if deviceOpen {
		return nil, ErrDeviceBusy
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if fi.Size()%BlockSize != 0 {
		f.Close()
		return nil, ErrBadFileSize
	}

	deviceOpen = true
	return &FileDevice{f: f, blocks: fi.Size() / BlockSize}, nil

}

// CreateDevice creates (or truncates) path to hold size bytes, a multiple of
// BlockSize, ready for Format to initialize.
func CreateDevice(path string, size int64) (*FileDevice, error) {

	if deviceOpen {
		return nil, ErrDeviceBusy
	}

	if size%BlockSize != 0 {
		return nil, ErrBadFileSize
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	err = f.Truncate(size)
	if err != nil {
		f.Close()
		return nil, err
	}

	deviceOpen = true
	return &FileDevice{f: f, blocks: size / BlockSize}, nil

}

// TotalBlocks returns the number of blocks on the device.
func (d *FileDevice) TotalBlocks() int64 {
	return d.blocks
}

func (d *FileDevice) checkBlock(block int64) error {
	if block < 0 || block >= d.blocks {
		return ErrInvalidArgument
	}
	return nil
}

// ReadBlockAt reads one block into buf, which must be exactly BlockSize long.
func (d *FileDevice) ReadBlockAt(block int64, buf []byte) error {

	if len(buf) != BlockSize {
		return ErrInvalidArgument
	}
	if err := d.checkBlock(block); err != nil {
		return err
	}

	_, err := d.f.ReadAt(buf, block*BlockSize)
	if err != nil && err != io.EOF {
		return ErrIO
	}
	return nil

}

// WriteBlockAt writes buf (exactly BlockSize bytes) to block.
func (d *FileDevice) WriteBlockAt(block int64, buf []byte) error {

	if len(buf) != BlockSize {
		return ErrInvalidArgument
	}
	if err := d.checkBlock(block); err != nil {
		return err
	}

	_, err := d.f.WriteAt(buf, block*BlockSize)
	if err != nil {
		return ErrIO
	}
	return nil

}

func (d *FileDevice) checkCluster(cluster int64) error {
	block := cluster * BlocksPerCluster
	if block < 0 || block+BlocksPerCluster > d.blocks {
		return ErrInvalidArgument
	}
	return nil
}

// ReadClusterAt reads one cluster (ClusterSize bytes, the first block being
// physical block cluster*BlocksPerCluster) into buf.
func (d *FileDevice) ReadClusterAt(cluster int64, buf []byte) error {

	if len(buf) != ClusterSize {
		return ErrInvalidArgument
	}
	if err := d.checkCluster(cluster); err != nil {
		return err
	}

	_, err := d.f.ReadAt(buf, cluster*ClusterSize)
	if err != nil && err != io.EOF {
		return ErrIO
	}
	return nil

}

// WriteClusterAt writes buf (ClusterSize bytes) to cluster.
func (d *FileDevice) WriteClusterAt(cluster int64, buf []byte) error {

	if len(buf) != ClusterSize {
		return ErrInvalidArgument
	}
	if err := d.checkCluster(cluster); err != nil {
		return err
	}

	_, err := d.f.WriteAt(buf, cluster*ClusterSize)
	if err != nil {
		return ErrIO
	}
	return nil

}

// Close releases the backing file. The device may be reopened afterwards.
func (d *FileDevice) Close() error {
	if d.f == nil {
		return ErrDeviceNotOpen
	}
	err := d.f.Close()
	d.f = nil
	deviceOpen = false
	return err
}
