package gsheets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gymbot/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrTrashed таблица удалена в корзину
var ErrTrashed = errors.New("spreadsheet is in the trash")

const rowTime = "02.01.2006 15:04:05"

// Client дописывает сохранённые подходы в Google таблицу
type Client struct {
	sheets        *sheets.Service
	drive         *drive.Service
	spreadsheetID string
	sheetName     string
}

// NewClient создаёт клиент по ключу сервисного аккаунта
func NewClient(ctx context.Context, credentialsPath, spreadsheetID, sheetName string) (*Client, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.JWTConfigFromJSON(data,
		sheets.SpreadsheetsScope,
		drive.DriveReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	httpClient := config.Client(ctx)

	sheetsSrv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSrv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return NewWithServices(sheetsSrv, driveSrv, spreadsheetID, sheetName), nil
}

// NewWithServices собирает клиент из готовых сервисов
func NewWithServices(s *sheets.Service, d *drive.Service, spreadsheetID, sheetName string) *Client {
	return &Client{
		sheets:        s,
		drive:         d,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}
}

// CheckAccess проверяет через Drive, что таблица доступна и не в корзине
func (c *Client) CheckAccess(ctx context.Context) error {
	f, err := c.drive.Files.Get(c.spreadsheetID).
		Fields("id", "name", "trashed").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("spreadsheet %s metadata: %w", c.spreadsheetID, err)
	}
	if f.Trashed {
		return fmt.Errorf("%s (%s): %w", f.Name, c.spreadsheetID, ErrTrashed)
	}
	return nil
}

// AppendTraining добавляет строку [дата, мышца, упражнение, подход, вес, повторы]
func (c *Client) AppendTraining(ctx context.Context, t models.TrainingEntry) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{trainingRow(t)},
	}
	_, err := c.sheets.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:F", valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append training %s: %w", t.ID, err)
	}
	return nil
}

func trainingRow(t models.TrainingEntry) []interface{} {
	return []interface{}{
		t.Date.Format(rowTime),
		t.Muscle,
		t.Exercise,
		t.Set,
		t.Weight.InexactFloat64(),
		t.Reps,
	}
}

// GetSpreadsheetURL возвращает URL таблицы
func GetSpreadsheetURL(spreadsheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", spreadsheetID)
}
