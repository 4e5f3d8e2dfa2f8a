// Package blocklog maintains the ledger's append-only log of blocks and the
// registry of listeners informed once per appended block. Blocks are durable
// on disk, listener registrations are not: they live only in memory and must
// be re-established by the owning service on every startup.
package blocklog

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tesseralabs/ledger/foundation/ledger/signature"
	"github.com/tesseralabs/ledger/foundation/merkle"
)

// EventHandler defines a function that is called when events occur in the
// processing of persisting blocks.
type EventHandler func(v string, args ...any)

// AppendListener is the callback contract invoked once per appended block
// with the height of the new block.
type AppendListener func(height uint64)

// =============================================================================

// Tx represents one committed transaction inside a block.
type Tx struct {
	Kind       string `json:"kind"`
	From       string `json:"from"`
	FromSub    string `json:"from_sub,omitempty"`
	To         string `json:"to"`
	ToSub      string `json:"to_sub,omitempty"`
	Spender    string `json:"spender,omitempty"`
	SpenderSub string `json:"spender_sub,omitempty"`
	Amount     uint64 `json:"amount"`
	Memo       []byte `json:"memo,omitempty"`
	Data       []byte `json:"data,omitempty"`
	TimeStamp  uint64 `json:"timestamp"`
	Signature  string `json:"sig,omitempty"`
}

// Hash returns the unique hash for the transaction so it can participate in
// the block's merkle tree.
func (tx Tx) Hash() ([]byte, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	return hash[:], nil
}

// Equals reports whether two transactions are the same.
func (tx Tx) Equals(other Tx) bool {
	return tx.Kind == other.Kind &&
		tx.From == other.From && tx.FromSub == other.FromSub &&
		tx.To == other.To && tx.ToSub == other.ToSub &&
		tx.Spender == other.Spender && tx.SpenderSub == other.SpenderSub &&
		tx.Amount == other.Amount &&
		bytes.Equal(tx.Memo, other.Memo) &&
		bytes.Equal(tx.Data, other.Data) &&
		tx.TimeStamp == other.TimeStamp &&
		tx.Signature == other.Signature
}

// BlockHeader represents common information about each block.
type BlockHeader struct {
	Number    uint64 `json:"number"`
	PrevHash  string `json:"prev_hash"`
	TransRoot string `json:"trans_root"`
	TimeStamp uint64 `json:"timestamp"`
}

// Block represents one immutable, ordered entry in the log.
type Block struct {
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
}

// Hash returns the unique hash for the block.
func (b Block) Hash() string {
	if b.Header.Number == 0 {
		return signature.ZeroHash
	}

	return signature.Hash(b)
}

// blockFS is the form of a block as persisted on disk.
type blockFS struct {
	Hash  string `json:"hash"`
	Block Block  `json:"block"`
}

// =============================================================================

// Log manages the append-only block log.
type Log struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	latest    Block
	listeners map[string]AppendListener
	evHandler EventHandler
}

// New opens the block log at the specified path, reloading any blocks
// persisted by a previous run of the service.
func New(path string, evHandler EventHandler) (*Log, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening block log: %w", err)
	}

	// Read any blocks from a previous run back into memory so the log picks
	// up at the height where it left off.
	var latest Block
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var fs blockFS
		if err := json.Unmarshal(scanner.Bytes(), &fs); err != nil {
			file.Close()
			return nil, fmt.Errorf("decoding block log: %w", err)
		}

		if fs.Block.Header.Number != latest.Header.Number+1 {
			file.Close()
			return nil, fmt.Errorf("block log out of order: got block %d after %d", fs.Block.Header.Number, latest.Header.Number)
		}

		if fs.Block.Header.PrevHash != latest.Hash() {
			file.Close()
			return nil, fmt.Errorf("block %d does not link to the hash of block %d", fs.Block.Header.Number, latest.Header.Number)
		}

		tree, err := merkle.NewTree(fs.Block.Trans)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("rebuilding transactions tree for block %d: %w", fs.Block.Header.Number, err)
		}
		if fs.Block.Header.TransRoot != tree.RootHex() {
			file.Close()
			return nil, fmt.Errorf("transactions root does not match for block %d", fs.Block.Header.Number)
		}

		latest = fs.Block
	}
	if err := scanner.Err(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading block log: %w", err)
	}

	ev("blocklog: New: loaded %d blocks", latest.Header.Number)

	return &Log{
		path:      path,
		file:      file,
		latest:    latest,
		listeners: make(map[string]AppendListener),
		evHandler: ev,
	}, nil
}

// Close releases the underlying log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// =============================================================================

// CurrentHeight returns the number of the most recent block. The height is
// monotonically increasing and never reused.
func (l *Log) CurrentHeight() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.latest.Header.Number
}

// LatestBlock returns a copy of the most recent block.
func (l *Log) LatestBlock() Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.latest
}

// ReadAll returns every block in the log in append order. It is used on
// startup to replay committed transactions against the genesis balances.
func (l *Log) ReadAll() ([]Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("opening block log: %w", err)
	}
	defer file.Close()

	var blocks []Block
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var fs blockFS
		if err := json.Unmarshal(scanner.Bytes(), &fs); err != nil {
			return nil, fmt.Errorf("decoding block log: %w", err)
		}

		blocks = append(blocks, fs.Block)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading block log: %w", err)
	}

	return blocks, nil
}

// RegisterAppendListener registers a callback to be invoked once per
// appended block. Registering under an existing name replaces the previous
// registration, which is what a restarting owner wants.
func (l *Log) RegisterAppendListener(name string, listener AppendListener) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.listeners[name] = listener
	l.evHandler("blocklog: RegisterAppendListener: name[%s]", name)
}

// Append writes a new block containing the specified transactions to the end
// of the log and informs every registered listener of the new height.
func (l *Log) Append(trans []Tx) (Block, error) {
	l.mu.Lock()

	tree, err := merkle.NewTree(trans)
	if err != nil {
		l.mu.Unlock()
		return Block{}, fmt.Errorf("building transactions tree: %w", err)
	}

	block := Block{
		Header: BlockHeader{
			Number:    l.latest.Header.Number + 1,
			PrevHash:  l.latest.Hash(),
			TransRoot: tree.RootHex(),
			TimeStamp: uint64(time.Now().UTC().UnixMilli()),
		},
		Trans: trans,
	}

	fs := blockFS{
		Hash:  block.Hash(),
		Block: block,
	}

	data, err := json.Marshal(fs)
	if err != nil {
		l.mu.Unlock()
		return Block{}, fmt.Errorf("encoding block: %w", err)
	}

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		l.mu.Unlock()
		return Block{}, fmt.Errorf("writing block: %w", err)
	}

	l.latest = block

	// Copy the listener set so the callbacks run outside the lock. A
	// listener is allowed to call back into the log.
	listeners := make([]AppendListener, 0, len(l.listeners))
	for _, listener := range l.listeners {
		listeners = append(listeners, listener)
	}

	l.mu.Unlock()

	l.evHandler("blocklog: Append: block[%d] trans[%d]", block.Header.Number, len(trans))

	for _, listener := range listeners {
		listener(block.Header.Number)
	}

	return block, nil
}
