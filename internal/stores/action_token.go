package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrActionNotFound         = errors.New("action token not found")
	ErrActionExpired          = errors.New("action token expired")
	ErrActionRedisUnavailable = errors.New("action token redis unavailable")
)

// ActionPurpose discriminates what a single-use token authorizes.
type ActionPurpose byte

const (
	PurposePasswordReset ActionPurpose = 1
	PurposeEmailVerify   ActionPurpose = 2
)

func (p ActionPurpose) String() string {
	switch p {
	case PurposePasswordReset:
		return "reset"
	case PurposeEmailVerify:
		return "verify"
	default:
		return "unknown"
	}
}

const actionRecordVersion = 1

// ActionRecord is the stored half of a single-use action token.
type ActionRecord struct {
	UserID     string
	Purpose    ActionPurpose
	ExpiresAt  int64
	SecretHash [32]byte
}

// ActionTokenStore persists single-use, time-boxed tokens for password reset
// and email verification. Consumption is transactional: a token is removed
// exactly once, and two concurrent redemptions cannot both succeed.
type ActionTokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewActionTokenStore(redisClient redis.UniversalClient, prefix string) *ActionTokenStore {
	if prefix == "" {
		prefix = "at"
	}
	return &ActionTokenStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ActionTokenStore) key(purpose ActionPurpose, id string) string {
	return s.prefix + ":" + purpose.String() + ":" + id
}

// Save persists a freshly issued record under the random token id.
func (s *ActionTokenStore) Save(ctx context.Context, id string, record *ActionRecord, ttl time.Duration) error {
	encoded, err := encodeActionRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(record.Purpose, id), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrActionRedisUnavailable, err)
	}
	return nil
}

// Consume redeems the token: the record is deleted and returned iff it
// exists, has not expired, and the presented secret hash matches. Expired
// records are deleted on sight. A hash mismatch leaves the record in place —
// a forged guess must not burn the legitimate token — and reads as not
// found so the caller cannot distinguish the two.
func (s *ActionTokenStore) Consume(
	ctx context.Context,
	purpose ActionPurpose,
	id string,
	providedHash [32]byte,
) (*ActionRecord, error) {
	const maxRetries = 4
	key := s.key(purpose, id)

	for i := 0; i < maxRetries; i++ {
		var matched *ActionRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeActionRecord(data)
			if err != nil {
				return err
			}

			if time.Now().Unix() >= record.ExpiresAt {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrActionExpired
			}

			if record.Purpose != purpose ||
				subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				return ErrActionNotFound
			}

			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			}); err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrActionNotFound
			case errors.Is(err, ErrActionNotFound), errors.Is(err, ErrActionExpired):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrActionRedisUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, ErrActionNotFound
}

func encodeActionRecord(record *ActionRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(actionRecordVersion)
	buf.WriteByte(byte(record.Purpose))
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.UserID) > 65535 {
		return nil, errors.New("action record user id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeActionRecord(data []byte) (*ActionRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != actionRecordVersion {
		return nil, errors.New("invalid action record version")
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &ActionRecord{
		Purpose: ActionPurpose(purpose),
	}

	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userIDLen); err != nil {
		return nil, err
	}

	userID := make([]byte, userIDLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	record.UserID = string(userID)

	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
