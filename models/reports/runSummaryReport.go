package reports

import (
	"context"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/utils"
	"github.com/shopspring/decimal"
)

// RunEmployerSummary aggregates one run's reports per employer for the
// dashboard: how many contractors were reviewed, how many ended the
// period noncompliant, and the dispatch share of the period's hires.
type RunEmployerSummary struct {
	EmployerId          int             `json:"employer_id"`
	ContractorCount     int             `json:"contractor_count"`
	NoncompliantCount   int             `json:"noncompliant_count"`
	DirectHireCount     int             `json:"direct_hire_count"`
	DispatchHireCount   int             `json:"dispatch_hire_count"`
	TotalDispatchNeeded int             `json:"total_dispatch_needed"`
	DispatchRate        decimal.Decimal `json:"dispatch_rate"`
}

// GetRunEmployerSummary computes the per-employer rollup for a committed
// run. Reads only; wrapped in a retry since dashboards poll this.
func GetRunEmployerSummary(ctx context.Context, runId int) ([]*RunEmployerSummary, error) {
	sql := `
SELECT
	r.employer_id,
	COUNT(*) AS contractor_count,
	SUM(CASE WHEN r.compliance = 'N' THEN 1 ELSE 0 END) AS noncompliant_count,
	COALESCE(d.direct_hire_count, 0) AS direct_hire_count,
	COALESCE(d.dispatch_hire_count, 0) AS dispatch_hire_count,
	SUM(r.dispatch_needed) AS total_dispatch_needed
FROM
	reports r
	LEFT JOIN (
		SELECT
			employer_id,
			SUM(CASE WHEN LOWER(TRIM(hire_type)) = 'dispatch' THEN 0 ELSE 1 END) AS direct_hire_count,
			SUM(CASE WHEN LOWER(TRIM(hire_type)) = 'dispatch' THEN 1 ELSE 0 END) AS dispatch_hire_count
		FROM
			report_details
		WHERE
			run_id = @runId
		GROUP BY
			employer_id
	) d ON d.employer_id = r.employer_id
WHERE
	r.run_id = @runId
GROUP BY
	r.employer_id, d.direct_hire_count, d.dispatch_hire_count
ORDER BY
	r.employer_id
`

	db := config.GetDB()
	logger := config.GetLogger()

	var records []*RunEmployerSummary
	err := utils.ExecuteWithRetry(logger, "run employer summary", 3, func() error {
		return db.WithContext(ctx).Raw(sql, map[string]interface{}{"runId": runId}).Scan(&records).Error
	})
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		total := rec.DirectHireCount + rec.DispatchHireCount
		if total > 0 {
			rec.DispatchRate = decimal.NewFromInt(int64(rec.DispatchHireCount)).
				Div(decimal.NewFromInt(int64(total))).
				Round(4)
		} else {
			rec.DispatchRate = decimal.Zero
		}
	}
	return records, nil
}
