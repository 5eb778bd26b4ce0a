// Package csvstore 账单汇总的 CSV 输出：每个窗口一份现金流表和一份期末余额表
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
)

// stampLayout ISO 8601 基本格式，文件名里不出现冒号
const stampLayout = "20060102T150405Z"

var (
	flowHeader    = []string{"timestamp", "currency", "type", "balance_change", "symbol", "side", "balance"}
	balanceHeader = []string{"currency", "balance"}
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("build dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func stamp(t time.Time) string { return t.UTC().Format(stampLayout) }

// FlowsPath from_<ISO>_to_<ISO>.csv
func (s *Store) FlowsPath(from, to time.Time) string {
	return filepath.Join(s.dir, "from_"+stamp(from)+"_to_"+stamp(to)+".csv")
}

// BalancesPath until_<ISO>.csv
func (s *Store) BalancesPath(at time.Time) string {
	return filepath.Join(s.dir, "until_"+stamp(at)+".csv")
}

func (s *Store) HasWindow(from, to time.Time) (bool, error) {
	for _, p := range []string{s.FlowsPath(from, to), s.BalancesPath(to)} {
		_, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *Store) OpeningBalances(at time.Time) (model.FeeBalances, bool, error) {
	f, err := os.Open(s.BalancesPath(at))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", f.Name(), err)
	}
	out := make(model.FeeBalances, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		v, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, false, fmt.Errorf("%s line %d: %w", f.Name(), i+1, err)
		}
		out[row[0]] = v
	}
	return out, true, nil
}

// SaveWindow 先写现金流再写余额；余额文件存在即代表窗口完成
func (s *Store) SaveWindow(from, to time.Time, flows []model.CashFlow, closing model.FeeBalances) error {
	flowRows := make([][]string, 0, len(flows)+1)
	flowRows = append(flowRows, flowHeader)
	for _, cf := range flows {
		flowRows = append(flowRows, []string{
			cf.Timestamp.UTC().Format(time.RFC3339Nano),
			cf.Currency,
			string(cf.Type),
			cf.BalanceChange.String(),
			cf.Symbol,
			cf.Side,
			cf.Balance.String(),
		})
	}
	if err := writeAtomic(s.FlowsPath(from, to), flowRows); err != nil {
		return err
	}

	ccys := make([]string, 0, len(closing))
	for c := range closing {
		ccys = append(ccys, c)
	}
	sort.Strings(ccys)
	balRows := make([][]string, 0, len(ccys)+1)
	balRows = append(balRows, balanceHeader)
	for _, c := range ccys {
		balRows = append(balRows, []string{c, closing[c].String()})
	}
	if err := writeAtomic(s.BalancesPath(to), balRows); err != nil {
		return err
	}
	log.Debug().Str("window", stamp(from)+"/"+stamp(to)).Int("flows", len(flows)).Msg("window saved")
	return nil
}

func writeAtomic(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.csv")
	if err != nil {
		return err
	}
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ port.WindowStore = (*Store)(nil)
