package service

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"freya/domain/orderbook"
	"freya/infra/sequence"
	"freya/infra/wal"
)

// Replay rebuilds the in-memory index from the journal. It must run
// before the service accepts traffic.
//
// Intents whose mutation fails are skipped, not fatal: the journal is
// written before the index is touched, so a rejected call (duplicate
// add, missing remove) leaves the same rejected intent behind on every
// replay. Corrupt frames and undecodable payloads are fatal.
func Replay(
	walDir string,
	book *orderbook.Book,
	seqGen *sequence.Sequencer,
	log zerolog.Logger,
) error {
	lastSeq, err := wal.Replay(walDir, func(rec *wal.Record) error {
		ev, err := decodeEvent(rec.Data)
		if err != nil {
			return fmt.Errorf("decode event seq %d: %w", rec.Seq, err)
		}

		switch rec.Type {
		case wal.RecordAdd:
			if _, err := book.AddOrder(ev.Order); err != nil {
				if errors.Is(err, orderbook.ErrCorruptIndex) {
					return err
				}
				log.Warn().Err(err).Uint64("seq", rec.Seq).Msg("replay: add skipped")
			}
		case wal.RecordRemove:
			if _, err := book.RemoveOrder(ev.Order); err != nil {
				if errors.Is(err, orderbook.ErrCorruptIndex) {
					return err
				}
				log.Warn().Err(err).Uint64("seq", rec.Seq).Msg("replay: remove skipped")
			}
		default:
			return fmt.Errorf("replay: unknown record type %d at seq %d", rec.Type, rec.Seq)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Resume sequencing after replay.
	seqGen.Reset(lastSeq)

	log.Info().
		Uint64("last_seq", lastSeq).
		Int("open_orders", book.OpenOrders()).
		Msg("journal replay completed")
	return nil
}
