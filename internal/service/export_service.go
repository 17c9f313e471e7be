package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kimeia/alientu-engine/internal/model"
	"github.com/kimeia/alientu-engine/internal/repository"
	"github.com/kimeia/alientu-engine/internal/workflow"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("Impossibile generare il file Excel.")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 工作簿包含三个 Sheet：Iscrizioni / Partecipanti / Squadre。
type ExportService interface {
	// ExportRegistrations 导出某个活动的报名、参与者与队伍
	ExportRegistrations(ctx context.Context, campaignID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const (
	sheetRegistrations = "Iscrizioni"
	sheetParticipants  = "Partecipanti"
	sheetTeams         = "Squadre"
)

// ═══════════════════════════════════════════════════════════
// ExportRegistrations 导出活动数据为 Excel
// ═══════════════════════════════════════════════════════════
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportRegistrations(ctx context.Context, campaignID string) (*bytes.Buffer, string, error) {
	// 1. 查询数据
	regs, err := s.repo.Registration.ListByCampaign(ctx, campaignID)
	if err != nil {
		s.logger.Error("查询报名列表失败", zap.Error(err))
		return nil, "", ErrInternal
	}
	participants, err := s.repo.Participant.ListByCampaign(ctx, campaignID)
	if err != nil {
		s.logger.Error("查询参与者列表失败", zap.Error(err))
		return nil, "", ErrInternal
	}
	teams, err := s.repo.Team.List(ctx, campaignID)
	if err != nil {
		s.logger.Error("查询队伍列表失败", zap.Error(err))
		return nil, "", ErrInternal
	}

	codes := make(map[string]string, len(regs))
	for i := range regs {
		codes[regs[i].RegistrationID] = regs[i].Code
	}
	teamNames := make(map[string]string, len(teams))
	for i := range teams {
		teamNames[teams[i].TeamID] = teams[i].Name
	}

	// 2. 生成工作簿
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00

	// 默认的 Sheet1 重命名为第一个 Sheet
	if err := f.SetSheetName("Sheet1", sheetRegistrations); err != nil {
		return nil, "", s.fail(err)
	}
	for _, name := range []string{sheetParticipants, sheetTeams} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, "", s.fail(err)
		}
	}

	if err := writeRegistrationSheet(f, regs, headerStyle, moneyStyle); err != nil {
		return nil, "", s.fail(err)
	}
	if err := writeParticipantSheet(f, participants, codes, teamNames, headerStyle); err != nil {
		return nil, "", s.fail(err)
	}
	if err := writeTeamSheet(f, teams, headerStyle); err != nil {
		return nil, "", s.fail(err)
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.fail(err)
	}

	filename := fmt.Sprintf("iscrizioni_%s.xlsx", campaignID)
	return buf, filename, nil
}

func (s *exportService) fail(err error) error {
	s.logger.Error("写入 Excel 失败", zap.Error(err))
	return ErrExportGenerateFail
}

func writeRegistrationSheet(f *excelize.File, regs []model.Registration, headerStyle, moneyStyle int) error {
	header := []interface{}{
		"Codice", "Tipo", "Stato", "Referente", "Email", "Telefono",
		"Minimo", "Donazione", "Totale", "Causale", "Ricevuta il",
	}
	if err := writeHeader(f, sheetRegistrations, header, headerStyle); err != nil {
		return err
	}

	for i := range regs {
		r := &regs[i]
		row := i + 2
		values := []interface{}{
			r.Code,
			workflow.RegistrationType(r.Type).Label(),
			workflow.Status(r.Status).Label(),
			r.ReferenteName,
			r.ReferenteEmail,
			r.ReferentePhone,
			r.TotalMinimum.InexactFloat64(),
			r.Donation.InexactFloat64(),
			r.TotalFinal.InexactFloat64(),
			causaleFor(r),
			r.CreatedAt.Format("02/01/2006 15:04"),
		}
		if err := f.SetSheetRow(sheetRegistrations, cell("A", row), &values); err != nil {
			return err
		}
	}

	if len(regs) > 0 {
		if err := f.SetCellStyle(sheetRegistrations, "G2", cell("I", len(regs)+1), moneyStyle); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheetRegistrations, "A", "A", 18)
	_ = f.SetColWidth(sheetRegistrations, "D", "E", 28)
	_ = f.SetColWidth(sheetRegistrations, "J", "J", 40)
	return nil
}

func writeParticipantSheet(
	f *excelize.File,
	participants []model.Participant,
	codes, teamNames map[string]string,
	headerStyle int,
) error {
	header := []interface{}{
		"Iscrizione", "Nome", "Cognome", "Email", "Telefono",
		"Fascia", "Sociale", "Squadra", "Note alimentari",
	}
	if err := writeHeader(f, sheetParticipants, header, headerStyle); err != nil {
		return err
	}

	for i := range participants {
		p := &participants[i]
		team := ""
		if p.TeamID != nil {
			team = teamNames[*p.TeamID]
		}
		social := "No"
		if p.AttendsSocial {
			social = "Sì"
		}
		values := []interface{}{
			codes[p.RegistrationID],
			p.FirstName,
			p.LastName,
			p.Email,
			p.Phone,
			p.AgeBand,
			social,
			team,
			p.FoodNotes,
		}
		if err := f.SetSheetRow(sheetParticipants, cell("A", i+2), &values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheetParticipants, "A", "A", 18)
	_ = f.SetColWidth(sheetParticipants, "B", "D", 22)
	_ = f.SetColWidth(sheetParticipants, "I", "I", 36)
	return nil
}

func writeTeamSheet(f *excelize.File, teams []model.TeamWithCount, headerStyle int) error {
	header := []interface{}{"Squadra", "Colore", "Stato", "Componenti", "Capienza", "Striscione", "Note"}
	if err := writeHeader(f, sheetTeams, header, headerStyle); err != nil {
		return err
	}

	for i := range teams {
		t := &teams[i]
		values := []interface{}{
			t.Name,
			t.Color,
			workflow.TeamStatus(t.Status).Label(),
			t.MemberCount,
			t.Capacity,
			t.BannerProvider,
			t.Notes,
		}
		if err := f.SetSheetRow(sheetTeams, cell("A", i+2), &values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheetTeams, "A", "A", 24)
	_ = f.SetColWidth(sheetTeams, "G", "G", 36)
	return nil
}

// ── 辅助函数 ──

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", cell(colName(len(header)-1), 1), style)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
