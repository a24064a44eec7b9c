package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"huay-server/common"
	"huay-server/common/constant"
	infmysql "huay-server/internal/infra/mysql"
	infrds "huay-server/internal/infra/redis"
	"huay-server/internal/model"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// 查询与报表服务（只读）

// DrawSummary 一期汇总：期号信息、当前版本开奖结果、按号码聚合的投注汇总
type DrawSummary struct {
	Draw        *model.DrawRound      `json:"draw"`
	DrawDate    int64                 `json:"draw_date"` // 开奖日零点秒级时间戳（曼谷时区，日报表归属键）
	Results     map[string]string     `json:"results"`   // 玩法编码 -> 当前版本中奖号码
	Numbers     []model.NumberSummary `json:"numbers"`
	TotalStake  float64               `json:"total_stake"`
	TotalPayout float64               `json:"total_payout"`
	RecentPoys  []model.BetGroup      `json:"recent_poys"` // 本期最近 20 张彩票单
}

// PoyLineView 注单视图：在表行字段之外附带状态可读串
type PoyLineView struct {
	model.BetLine
	StatusDesc string `json:"status_desc"`
}

// PoyDetail 彩票单明细：单头 + 全部注单
type PoyDetail struct {
	Poy   *model.BetGroup `json:"poy"`
	Lines []PoyLineView   `json:"lines"`
}

// AuditTrail 一期的审计记录：结果版本历史、改号记录、冲正流水
type AuditTrail struct {
	ResultHistory []model.ResultRecord `json:"result_history"`
	EditLogs      []model.EditLog      `json:"edit_logs"`
	ReverseLogs   []model.ReverseLog   `json:"reverse_logs"`
}

type ReportService interface {
	GetDrawSummary(ctx context.Context, drawID string) (*DrawSummary, error)
	GetPoyDetail(ctx context.Context, poyNo string) (*PoyDetail, error)
	GetAuditTrail(ctx context.Context, drawID string) (*AuditTrail, error)
	ListMemberPoys(ctx context.Context, memberID int64, drawID string, offset, limit uint) ([]model.BetGroup, error)
	GetDrawResultCached(ctx context.Context, drawID string) (map[string]any, error)
}

type reportService struct{}

func NewReportService() ReportService { return &reportService{} }

// GetDrawSummary 汇总页数据源
func (s *reportService) GetDrawSummary(ctx context.Context, drawID string) (*DrawSummary, error) {
	db := infmysql.SQLX()

	draw, err := model.GetDraw(ctx, db, drawID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}

	out := &DrawSummary{Draw: draw}
	out.DrawDate = common.GetDataTimeUnix(time.UnixMilli(draw.CloseTime))
	if draw.ResultVersion > 0 {
		results, err := model.GetResultsByVersion(ctx, db, drawID, draw.ResultVersion)
		if err != nil {
			return nil, err
		}
		out.Results = results
	}

	numbers, err := model.SummarizeDrawByNumber(ctx, db, drawID)
	if err != nil {
		return nil, err
	}
	out.Numbers = numbers

	// 汇总口径只计有效注单（排除已取消）
	validEx := g.And(g.C("draw_id").Eq(drawID), g.C("status").Neq(constant.BetStatusCancelled))
	if out.TotalStake, err = common.SumInfo(db, "bet_line", "stake", validEx); err != nil {
		return nil, err
	}
	if out.TotalPayout, err = common.SumInfo(db, "bet_line", "payout", validEx); err != nil {
		return nil, err
	}

	if out.RecentPoys, err = model.ListPoysByDraw(ctx, db, drawID, 0, 20); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPoyDetail 彩票单明细页数据源
func (s *reportService) GetPoyDetail(ctx context.Context, poyNo string) (*PoyDetail, error) {
	db := infmysql.SQLX()
	poy, err := model.GetPoy(ctx, db, poyNo)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrPoyNotFound
		}
		return nil, err
	}
	lines, err := model.ListLinesByPoy(ctx, db, poyNo)
	if err != nil {
		return nil, err
	}
	views := make([]PoyLineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, PoyLineView{BetLine: l, StatusDesc: constant.BetStatusString(l.Status)})
	}
	return &PoyDetail{Poy: poy, Lines: views}, nil
}

// GetAuditTrail 审计页数据源：版本历史 + 改号记录 + 冲正流水
func (s *reportService) GetAuditTrail(ctx context.Context, drawID string) (*AuditTrail, error) {
	db := infmysql.SQLX()
	history, err := model.ListResultHistory(ctx, db, drawID)
	if err != nil {
		return nil, err
	}
	edits, err := model.ListEditLogs(ctx, db, drawID)
	if err != nil {
		return nil, err
	}
	reversals, err := model.ListReverseLogs(ctx, db, drawID)
	if err != nil {
		return nil, err
	}
	return &AuditTrail{ResultHistory: history, EditLogs: edits, ReverseLogs: reversals}, nil
}

// ListMemberPoys 会员购彩记录（drawID 可选过滤）
func (s *reportService) ListMemberPoys(ctx context.Context, memberID int64, drawID string, offset, limit uint) ([]model.BetGroup, error) {
	if limit == 0 || limit > 100 {
		limit = 20
	}
	ex := []exp.Expression{g.C("member_id").Eq(memberID)}
	if drawID != "" {
		ex = append(ex, g.C("draw_id").Eq(drawID))
	}
	var list []model.BetGroup
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     infmysql.SQLX(),
		Table:  "bet_group",
		Fields: common.EnumFields(model.BetGroup{}),
		Ex:     ex,
		Order:  []exp.OrderedExpression{g.C("id").Desc()},
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// GetDrawResultCached 开奖结果快查：优先 Redis 缓存，未命中回源数据库
func (s *reportService) GetDrawResultCached(ctx context.Context, drawID string) (map[string]any, error) {
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.DrawResultKey(drawID)).Bytes(); len(bs) > 0 {
			var val map[string]any
			if json.Unmarshal(bs, &val) == nil {
				return val, nil
			}
		}
	}

	db := infmysql.SQLX()
	draw, err := model.GetDraw(ctx, db, drawID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}
	val := map[string]any{
		"draw_id":        draw.DrawID,
		"result_version": draw.ResultVersion,
		"status":         draw.Status,
	}
	if draw.ResultVersion > 0 {
		results, err := model.GetResultsByVersion(ctx, db, drawID, draw.ResultVersion)
		if err != nil {
			return nil, err
		}
		val["results"] = results
	}
	return val, nil
}
