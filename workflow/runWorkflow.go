package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/compliance"
	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunInput is the contract surface toward the HTTP and CLI layers.
type RunInput struct {
	ModeId        int       `json:"mode_id" binding:"required"`
	ReviewedDate  time.Time `json:"reviewed_date" binding:"required"`
	ReportingDate time.Time `json:"reporting_date"`
	RunNumber     *int      `json:"run_number"`
	DryRun        bool      `json:"dry_run"`
}

// RunResult is the structured outcome of one execution. Transactional
// failures surface here with Success=false rather than as an error; only
// precondition violations (unknown mode, zero date) come back as errors.
type RunResult struct {
	Success bool   `json:"success"`
	RunId   *int   `json:"run_id"`
	Message string `json:"message"`
}

// errDryRunRollback forces gorm to roll the transaction back after a
// clean dry-run pass. It never escapes ExecuteRun.
var errDryRunRollback = errors.New("dry run rollback")

// ExecuteRun performs one compliance run: discovers the contractor
// universe, seeds each contractor from the prior run, replays the day's
// hires through the compliance engine in order, and persists detail and
// report rows — all inside a single transaction. A dry run executes the
// full pass and rolls everything back, the Run row included.
func ExecuteRun(ctx context.Context, db *gorm.DB, logger *logrus.Logger, input RunInput) (RunResult, error) {
	if input.ModeId <= 0 {
		return RunResult{}, errors.New("mode id is required")
	}
	if input.ReviewedDate.IsZero() {
		return RunResult{}, errors.New("reviewed date is required")
	}

	mode, err := models.GetModeById(db, ctx, input.ModeId)
	if err != nil {
		return RunResult{}, fmt.Errorf("resolve mode %d: %w", input.ModeId, err)
	}

	reportingDate := input.ReportingDate
	if reportingDate.IsZero() {
		reportingDate = time.Now().UTC()
	}

	var runId int
	var contractorCount, hireCount int

	txErr := db.Transaction(func(tx *gorm.DB) error {
		runNumber := 0
		if input.RunNumber != nil {
			runNumber = *input.RunNumber
		} else {
			next, err := models.NextRunNumber(tx, ctx, input.ModeId, input.ReviewedDate)
			if err != nil {
				return err
			}
			runNumber = next
		}

		run := models.Run{
			ModeId:        input.ModeId,
			ReviewedDate:  input.ReviewedDate,
			ReportingDate: reportingDate,
			RunNumber:     runNumber,
		}
		if err := tx.WithContext(ctx).Create(&run).Error; err != nil {
			return err
		}
		runId = run.ID

		previousRun, err := models.GetPreviousRun(tx, ctx, input.ReviewedDate)
		if err != nil {
			return err
		}

		universe, err := contractorUniverse(tx, ctx, input.ReviewedDate, previousRun)
		if err != nil {
			return err
		}
		contractorCount = len(universe)

		for _, key := range universe {
			var seed *compliance.Seed
			contractorName := key.ContractorName
			if previousRun != nil {
				prior, err := models.GetPriorReport(tx, ctx, previousRun.ID, key.EmployerId, key.ContractorId)
				if err != nil {
					return err
				}
				if prior != nil {
					seed = &compliance.Seed{
						Status:         prior.Status(),
						DirectCount:    prior.DirectCount,
						DispatchNeeded: prior.DispatchNeeded,
					}
					if contractorName == "" {
						contractorName = prior.ContractorName
					}
				}
			}
			state := compliance.NewState(seed, mode.AllowedDirect)

			hires, err := models.GetHiresForContractor(tx, ctx, key.EmployerId, key.ContractorId, input.ReviewedDate)
			if err != nil {
				return err
			}
			hireCount += len(hires)

			details := replayHires(run.ID, state, hires, mode.AllowedDirect)
			if input.DryRun {
				continue
			}
			if len(details) > 0 {
				if err := tx.WithContext(ctx).Create(&details).Error; err != nil {
					return err
				}
			}
			report := models.Report{
				RunId:            run.ID,
				EmployerId:       key.EmployerId,
				ContractorId:     key.ContractorId,
				ContractorName:   contractorName,
				Compliance:       string(state.Compliance),
				DirectCount:      state.DirectCount,
				DispatchNeeded:   state.DispatchNeeded,
				NextHireDispatch: string(state.NextHireDispatch),
			}
			if err := tx.WithContext(ctx).Create(&report).Error; err != nil {
				return err
			}
		}

		if input.DryRun {
			return errDryRunRollback
		}

		logLine := fmt.Sprintf("run %d (%s #%d): %d contractors, %d hires processed",
			run.ID, mode.Name, runNumber, contractorCount, hireCount)
		return tx.WithContext(ctx).Model(&models.Run{}).
			Where("id = ?", run.ID).
			Update("output_log", logLine).Error
	})

	if errors.Is(txErr, errDryRunRollback) {
		return RunResult{
			Success: true,
			Message: fmt.Sprintf("dry run completed: %d contractors, %d hires; no rows persisted", contractorCount, hireCount),
		}, nil
	}
	if txErr != nil {
		config.LogError(logger, "runWorkflow.go", "ExecuteRun", "run transaction", input, txErr)
		return RunResult{
			Success: false,
			Message: txErr.Error(),
		}, nil
	}

	return RunResult{
		Success: true,
		RunId:   &runId,
		Message: fmt.Sprintf("run %d completed: %d contractors, %d hires processed", runId, contractorCount, hireCount),
	}, nil
}

// contractorUniverse unions the contractors with raw hires reviewed on or
// after the run's reviewed date with every contractor reported in the
// prior run, so contractors with zero new hires still get a
// carried-forward report row. All prior-run contractors are carried with
// no recency window.
func contractorUniverse(tx *gorm.DB, ctx context.Context, reviewedDate time.Time, previousRun *models.Run) ([]*models.ContractorKey, error) {
	hiring, err := models.GetHiringContractors(tx, ctx, reviewedDate)
	if err != nil {
		return nil, err
	}
	var reported []*models.ContractorKey
	if previousRun != nil {
		reported, err = models.GetReportedContractors(tx, ctx, previousRun.ID)
		if err != nil {
			return nil, err
		}
	}
	return mergeContractorKeys(hiring, reported), nil
}

// mergeContractorKeys deduplicates on (employer, contractor) and sorts so
// the contractor loop order is deterministic: a dry run and its real
// counterpart visit contractors identically.
func mergeContractorKeys(hiring, reported []*models.ContractorKey) []*models.ContractorKey {
	type pairKey struct {
		employerId   int
		contractorId int
	}
	unique := make(map[pairKey]*models.ContractorKey, len(hiring)+len(reported))
	for _, key := range hiring {
		unique[pairKey{key.EmployerId, key.ContractorId}] = key
	}
	for _, key := range reported {
		k := pairKey{key.EmployerId, key.ContractorId}
		if existing, ok := unique[k]; ok {
			if existing.ContractorName == "" {
				existing.ContractorName = key.ContractorName
			}
			continue
		}
		unique[k] = key
	}

	merged := make([]*models.ContractorKey, 0, len(unique))
	for _, key := range unique {
		merged = append(merged, key)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].EmployerId != merged[j].EmployerId {
			return merged[i].EmployerId < merged[j].EmployerId
		}
		return merged[i].ContractorId < merged[j].ContractorId
	})
	return merged
}

// replayHires folds the ordered hires into the state, producing one audit
// row per hire with the post-application snapshot. The caller owns the
// ordering; this function applies them as given.
func replayHires(runId int, state *compliance.State, hires []*models.RawHire, allowedDirect int) []*models.ReportDetail {
	details := make([]*models.ReportDetail, 0, len(hires))
	for _, hire := range hires {
		state.ApplyHire(hire.HireType, allowedDirect)
		details = append(details, &models.ReportDetail{
			RunId:            runId,
			EmployerId:       hire.EmployerId,
			ContractorId:     hire.ContractorId,
			ContractorName:   hire.ContractorName,
			MemberName:       hire.MemberName,
			IANumber:         hire.IANumber,
			StartDate:        hire.StartDate,
			HireType:         hire.HireType,
			ReviewedDate:     hire.ReviewedDate,
			Compliance:       string(state.Compliance),
			DirectCount:      state.DirectCount,
			DispatchNeeded:   state.DispatchNeeded,
			NextHireDispatch: string(state.NextHireDispatch),
		})
	}
	return details
}
