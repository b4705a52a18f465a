// Package feeds reads the two delimited-text input feeds into raw,
// untyped records. Both feeds are positional with no header row; every
// value stays a string until the downstream stages type it.
package feeds

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/centrimetry/subrec/pkg/errors"
)

// RawSubscriber is one row of the subscriber registry feed.
type RawSubscriber struct {
	ID                string
	ActivationDateRaw string
}

// RawTransaction is one row of the transaction log feed.
// All fields are textual until typed by the repairer.
type RawTransaction struct {
	Timestamp    string
	SubscriberID string
	Amount       string
	Channel      string
}

// SubscriberReader produces the ordered raw subscriber rows of a batch.
type SubscriberReader interface {
	ReadSubscribers() ([]RawSubscriber, error)
}

// TransactionReader produces the ordered raw transaction rows of a batch.
type TransactionReader interface {
	ReadTransactions() ([]RawTransaction, error)
}

const (
	subscriberFieldCount  = 2
	transactionFieldCount = 4
)

// FileSubscriberReader reads the subscriber feed from a delimited file.
type FileSubscriberReader struct {
	Path      string
	Delimiter rune
}

// NewFileSubscriberReader creates a reader for the subscriber feed at path.
// A zero delimiter defaults to comma.
func NewFileSubscriberReader(path string, delimiter rune) *FileSubscriberReader {
	return &FileSubscriberReader{Path: path, Delimiter: delimiter}
}

// ReadSubscribers implements SubscriberReader.
func (r *FileSubscriberReader) ReadSubscribers() ([]RawSubscriber, error) {
	rows, err := readRows(r.Path, r.Delimiter, subscriberFieldCount)
	if err != nil {
		return nil, err
	}

	subscribers := make([]RawSubscriber, 0, len(rows))
	for _, row := range rows {
		subscribers = append(subscribers, RawSubscriber{
			ID:                row[0],
			ActivationDateRaw: row[1],
		})
	}
	return subscribers, nil
}

// FileTransactionReader reads the transaction feed from a delimited file.
type FileTransactionReader struct {
	Path      string
	Delimiter rune
}

// NewFileTransactionReader creates a reader for the transaction feed at path.
// A zero delimiter defaults to comma.
func NewFileTransactionReader(path string, delimiter rune) *FileTransactionReader {
	return &FileTransactionReader{Path: path, Delimiter: delimiter}
}

// ReadTransactions implements TransactionReader.
func (r *FileTransactionReader) ReadTransactions() ([]RawTransaction, error) {
	rows, err := readRows(r.Path, r.Delimiter, transactionFieldCount)
	if err != nil {
		return nil, err
	}

	transactions := make([]RawTransaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, RawTransaction{
			Timestamp:    row[0],
			SubscriberID: row[1],
			Amount:       row[2],
			Channel:      row[3],
		})
	}
	return transactions, nil
}

// readRows reads all rows of a delimited file, enforcing the positional
// field count. A row with the wrong field count fails the whole batch; a
// malformed feed is not a repairable defect.
func readRows(path string, delimiter rune, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = fields
	reader.TrimLeadingSpace = true

	var rows [][]string
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errors.ParseError{
				Format:  "csv",
				Source:  path,
				Row:     row,
				Message: err.Error(),
				Err:     err,
			}
		}
		rows = append(rows, record)
	}
	return rows, nil
}
