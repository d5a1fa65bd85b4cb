package pos

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/valterra/pos/pkg/storage"
)

// Key layout for the persisted-state-layout described in the external
// interfaces: validator records live under pos/validator/<address>, the
// current epoch under pos/epoch. A host's real storage facade keys bonds,
// unbonds and slashes the same way; Core keeps those in memory and only
// snapshots the validator registry and current epoch here, since bonds and
// slashes are reconstructed by replaying a host's own tx log on restart
// (see cmd/posd's stateFile for the CLI-side equivalent of that replay).
const (
	keyPrefixValidator = "pos/validator/"
	keyEpoch           = "pos/epoch"
)

func validatorKey(addr Address) string {
	return keyPrefixValidator + addr.Hex()
}

// validatorRecord is the on-disk form of a validator written by Snapshot and
// read back by LoadValidatorRecord.
type validatorRecord struct {
	ConsensusKeyHex string `json:"consensus_key"`
	Commission      string `json:"commission"`
	Stake           uint64 `json:"stake"`
	State           string `json:"state"`
}

// Snapshot writes the current validator registry and epoch number to store
// as a single atomic batch, keyed per the persisted-state-layout of §6. It
// takes a read lock for the duration of the snapshot so concurrent bonds or
// slashes cannot be captured half-written.
func (c *Core) Snapshot(store storage.KVStore) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	batch := store.NewBatch()
	for addr, v := range c.validators {
		rec := validatorRecord{
			ConsensusKeyHex: hex.EncodeToString(v.ConsensusKey),
			Commission:      v.CommissionAt(c.epoch).String(),
			Stake:           v.StakeAt(c.epoch).Uint64(),
			State:           v.StateAt(c.epoch).String(),
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("pos: marshal validator %s: %w", addr.Hex(), err)
		}
		batch.Put([]byte(validatorKey(addr)), b)
	}
	epochBytes, err := json.Marshal(uint64(c.epoch))
	if err != nil {
		return err
	}
	batch.Put([]byte(keyEpoch), epochBytes)
	return batch.Write()
}

// LoadValidatorRecord reads back a validator record written by Snapshot. The
// second return value is false if no record was ever written for addr.
func LoadValidatorRecord(store storage.KVStore, addr Address) (validatorRecord, bool, error) {
	b, err := store.Get([]byte(validatorKey(addr)))
	if err == storage.ErrKVNotFound {
		return validatorRecord{}, false, nil
	}
	if err != nil {
		return validatorRecord{}, false, err
	}
	var rec validatorRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return validatorRecord{}, false, err
	}
	return rec, true, nil
}

// LoadSnapshotEpoch reads back the epoch number written by Snapshot. The
// second return value is false if Snapshot was never called against store.
func LoadSnapshotEpoch(store storage.KVStore) (Epoch, bool, error) {
	b, err := store.Get([]byte(keyEpoch))
	if err == storage.ErrKVNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var e uint64
	if err := json.Unmarshal(b, &e); err != nil {
		return 0, false, err
	}
	return Epoch(e), true, nil
}
