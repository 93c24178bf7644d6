package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
)

type catalogFile struct {
	ToolTypes []struct {
		ID              string          `json:"id"`
		Code            string          `json:"code"`
		Name            string          `json:"name"`
		Specification   string          `json:"specification"`
		UnitPrice       decimal.Decimal `json:"unitPrice"`
		DefaultMinStock int             `json:"defaultMinStock"`
		DefaultMaxStock int             `json:"defaultMaxStock"`
	} `json:"toolTypes"`
	Equipment []struct {
		ID              string `json:"id"`
		EquipmentNumber string `json:"equipmentNumber"`
		FactoryID       string `json:"factoryId"`
		Location        string `json:"location"`
		Model           string `json:"model"`
	} `json:"equipment"`
}

// LoadCatalog precarga tipos de herramienta y máquinas desde JSON. Los IDs vacíos se generan.
func (s *Store) LoadCatalog(r io.Reader) (toolTypes, equipment int, err error) {
	var f catalogFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return 0, 0, fmt.Errorf("decode catalog: %w", err)
	}
	now := time.Now()
	for i, t := range f.ToolTypes {
		if strings.TrimSpace(t.Code) == "" {
			return 0, 0, fmt.Errorf("catalog: toolTypes[%d] sin code", i)
		}
		id := t.ID
		if id == "" {
			id = uuid.New().String()
		}
		s.AddToolType(entity.ToolType{
			ID: id, Code: t.Code, Name: t.Name, Specification: t.Specification,
			UnitPrice: t.UnitPrice, DefaultMinStock: t.DefaultMinStock, DefaultMaxStock: t.DefaultMaxStock,
			CreatedAt: now, UpdatedAt: now,
		})
	}
	for i, e := range f.Equipment {
		if strings.TrimSpace(e.EquipmentNumber) == "" {
			return 0, 0, fmt.Errorf("catalog: equipment[%d] sin equipmentNumber", i)
		}
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		s.AddEquipment(entity.Equipment{
			ID: id, EquipmentNumber: e.EquipmentNumber, FactoryID: e.FactoryID,
			Location: e.Location, Model: e.Model, CreatedAt: now,
		})
	}
	return len(f.ToolTypes), len(f.Equipment), nil
}

// LoadCatalogFile abre path y llama a LoadCatalog.
func (s *Store) LoadCatalogFile(path string) (toolTypes, equipment int, err error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open catalog: %w", err)
	}
	defer fh.Close()
	return s.LoadCatalog(fh)
}
