package sofs

import "container/list"

// blockNode is one entry in the block cache: a block's bytes, its physical
// block number, and whether it has been written since it was last flushed.
type blockNode struct {
	block int64
	body  [BlockSize]byte
	dirty bool
	elem  *list.Element // this node's element in the recency list
}

// BlockCache wraps a Device with a fixed pool of K buffered blocks and an
// LRU write-back eviction policy. Unbuffered mode is simply
// NewBlockCache(dev, 0): every read/write round-trips to dev directly and no
// node is retained.
type BlockCache struct {
	dev      Device
	capacity int
	byBlock  map[int64]*blockNode
	recency  *list.List // front = most recently used
}

// NewBlockCache wraps dev with a pool of capacity nodes.
func NewBlockCache(dev Device, capacity int) *BlockCache {
	return &BlockCache{
		dev:      dev,
		capacity: capacity,
		byBlock:  make(map[int64]*blockNode),
		recency:  list.New(),
	}
}

func (c *BlockCache) touch(n *blockNode) {
	c.recency.MoveToFront(n.elem)
}

func (c *BlockCache) evictOne() error {

	back := c.recency.Back()
	if back == nil {
		return nil
	}

	victim := back.Value.(*blockNode)
	if victim.dirty {
		if err := c.dev.WriteBlockAt(victim.block, victim.body[:]); err != nil {
			return err
		}
	}

	c.recency.Remove(back)
	delete(c.byBlock, victim.block)
	return nil

}

func (c *BlockCache) insert(block int64) (*blockNode, error) {

	if c.capacity > 0 && len(c.byBlock) >= c.capacity {
		if err := c.evictOne(); err != nil {
			return nil, err
		}
	}

	n := &blockNode{block: block}
	if err := c.dev.ReadBlockAt(block, n.body[:]); err != nil {
		return nil, err
	}

	if c.capacity > 0 {
		n.elem = c.recency.PushFront(n)
		c.byBlock[block] = n
	}

	return n, nil

}

// Read returns a copy of block's current bytes, buffered or not.
func (c *BlockCache) Read(block int64) ([BlockSize]byte, error) {

	if c.capacity == 0 {
		var buf [BlockSize]byte
		if err := c.dev.ReadBlockAt(block, buf[:]); err != nil {
			return buf, err
		}
		return buf, nil
	}

	n, ok := c.byBlock[block]
	if !ok {
		var err error
		n, err = c.insert(block)
		if err != nil {
			return [BlockSize]byte{}, err
		}
		return n.body, nil
	}

	c.touch(n)
	return n.body, nil

}

// Write stores buf as block's new contents and marks the node dirty.
func (c *BlockCache) Write(block int64, buf [BlockSize]byte) error {

	if c.capacity == 0 {
		return c.dev.WriteBlockAt(block, buf[:])
	}

	n, ok := c.byBlock[block]
	if !ok {
		var err error
		n, err = c.insert(block)
		if err != nil {
			return err
		}
	} else {
		c.touch(n)
	}

	n.body = buf
	n.dirty = true
	return nil

}

// Flush forces block's current cached bytes through to the device,
// whether or not they are dirty, and clears the dirty flag.
func (c *BlockCache) Flush(block int64) error {

	n, ok := c.byBlock[block]
	if !ok {
		return nil
	}

	if err := c.dev.WriteBlockAt(block, n.body[:]); err != nil {
		return err
	}
	n.dirty = false
	return nil

}

// Sync writes block back only if dirty, then clears the dirty flag.
func (c *BlockCache) Sync(block int64) error {

	n, ok := c.byBlock[block]
	if !ok || !n.dirty {
		return nil
	}

	return c.Flush(block)

}

// SyncAll writes back every dirty node without discarding the pool.
func (c *BlockCache) SyncAll() error {
	for e := c.recency.Front(); e != nil; e = e.Next() {
		n := e.Value.(*blockNode)
		if n.dirty {
			if err := c.dev.WriteBlockAt(n.block, n.body[:]); err != nil {
				return err
			}
			n.dirty = false
		}
	}
	return nil
}

// Close flushes every dirty node then empties the pool.
func (c *BlockCache) Close() error {

	for e := c.recency.Front(); e != nil; e = e.Next() {
		n := e.Value.(*blockNode)
		if n.dirty {
			if err := c.dev.WriteBlockAt(n.block, n.body[:]); err != nil {
				return err
			}
		}
	}

	c.byBlock = make(map[int64]*blockNode)
	c.recency = list.New()
	return nil

}
