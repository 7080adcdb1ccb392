package workflow

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/models"
)

// Integration tests for the transactional run properties. They need a
// real MySQL (docker); gate on INTEGRATION_TESTS like the rest of the
// suite so `go test ./...` stays hermetic.

func setupIntegrationDB(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "hiringhall_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	if err := models.SeedDefaultModes(ctx, config.GetDB()); err != nil {
		t.Fatalf("SeedDefaultModes: %v", err)
	}
	return ctx
}

func seedHire(t *testing.T, ctx context.Context, employerId, contractorId int, ia string, hireType string, reviewed time.Time) {
	t.Helper()
	db := config.GetDB()
	hire := models.RawHire{
		EmployerId:     employerId,
		ContractorId:   contractorId,
		ContractorName: fmt.Sprintf("Contractor %d", contractorId),
		MemberName:     "Member " + ia,
		IANumber:       ia,
		StartDate:      reviewed,
		HireType:       hireType,
		ReviewedDate:   reviewed,
	}
	if err := db.WithContext(ctx).Create(&hire).Error; err != nil {
		t.Fatalf("seed hire: %v", err)
	}
}

func countRows(t *testing.T, ctx context.Context, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := config.GetDB().WithContext(ctx).Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestExecuteRun_EndToEnd(t *testing.T) {
	ctx := setupIntegrationDB(t)
	db := config.GetDB()
	logger := config.GetLogger()

	day1 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)

	// Contractor (1,5): three direct hires cross the 2-to-1 quota.
	seedHire(t, ctx, 1, 5, "100", "direct", day1)
	seedHire(t, ctx, 1, 5, "101", "direct", day1)
	seedHire(t, ctx, 1, 5, "102", "direct", day1)
	// Contractor (1,7): stays compliant.
	seedHire(t, ctx, 1, 7, "200", "direct", day1)

	result, err := ExecuteRun(ctx, db, logger, RunInput{ModeId: 1, ReviewedDate: day1})
	if err != nil {
		t.Fatalf("ExecuteRun day1: %v", err)
	}
	if !result.Success || result.RunId == nil {
		t.Fatalf("day1 result = %+v", result)
	}

	reports, err := models.GetReportsByRunId(ctx, *result.RunId)
	if err != nil {
		t.Fatalf("GetReportsByRunId: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("day1 reports = %d, want 2", len(reports))
	}
	byContractor := map[int]*models.Report{}
	for _, r := range reports {
		byContractor[r.ContractorId] = r
	}
	if r := byContractor[5]; r.Compliance != "N" || r.DirectCount != 3 || r.DispatchNeeded != 1 {
		t.Errorf("contractor 5 report = %+v", *r)
	}
	if r := byContractor[7]; r.Compliance != "C" || r.DirectCount != 1 {
		t.Errorf("contractor 7 report = %+v", *r)
	}

	details, err := models.GetReportDetailsByRunId(ctx, *result.RunId)
	if err != nil {
		t.Fatalf("GetReportDetailsByRunId: %v", err)
	}
	if len(details) != 4 {
		t.Errorf("day1 details = %d, want 4", len(details))
	}

	// Day 2: contractor 5 pays the owed dispatch; contractor 7 has no new
	// hires and must be carried forward with an unchanged state.
	seedHire(t, ctx, 1, 5, "103", "dispatch", day2)

	result2, err := ExecuteRun(ctx, db, logger, RunInput{ModeId: 1, ReviewedDate: day2})
	if err != nil {
		t.Fatalf("ExecuteRun day2: %v", err)
	}
	if !result2.Success || result2.RunId == nil {
		t.Fatalf("day2 result = %+v", result2)
	}
	reports2, err := models.GetReportsByRunId(ctx, *result2.RunId)
	if err != nil {
		t.Fatalf("GetReportsByRunId day2: %v", err)
	}
	if len(reports2) != 2 {
		t.Fatalf("day2 reports = %d, want 2 (carry-forward included)", len(reports2))
	}
	byContractor2 := map[int]*models.Report{}
	for _, r := range reports2 {
		byContractor2[r.ContractorId] = r
	}
	if r := byContractor2[5]; r.Compliance != "C" || r.DirectCount != 0 || r.DispatchNeeded != 0 {
		t.Errorf("contractor 5 day2 report = %+v", *r)
	}
	if r := byContractor2[7]; r.Compliance != "C" || r.DirectCount != 1 {
		t.Errorf("contractor 7 carried-forward report = %+v", *r)
	}
}

func TestExecuteRun_DryRunLeavesNoTrace(t *testing.T) {
	ctx := setupIntegrationDB(t)
	db := config.GetDB()
	logger := config.GetLogger()

	day := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	seedHire(t, ctx, 1, 5, "100", "direct", day)

	runsBefore := countRows(t, ctx, &models.Run{})
	reportsBefore := countRows(t, ctx, &models.Report{})
	detailsBefore := countRows(t, ctx, &models.ReportDetail{})

	result, err := ExecuteRun(ctx, db, logger, RunInput{ModeId: 1, ReviewedDate: day, DryRun: true})
	if err != nil {
		t.Fatalf("ExecuteRun dry run: %v", err)
	}
	if !result.Success {
		t.Fatalf("dry run result = %+v", result)
	}
	if result.RunId != nil {
		t.Errorf("dry run returned run id %d, want nil", *result.RunId)
	}

	if got := countRows(t, ctx, &models.Run{}); got != runsBefore {
		t.Errorf("runs after dry run = %d, want %d", got, runsBefore)
	}
	if got := countRows(t, ctx, &models.Report{}); got != reportsBefore {
		t.Errorf("reports after dry run = %d, want %d", got, reportsBefore)
	}
	if got := countRows(t, ctx, &models.ReportDetail{}); got != detailsBefore {
		t.Errorf("details after dry run = %d, want %d", got, detailsBefore)
	}
}

func TestExecuteRun_FailureRollsBackEverything(t *testing.T) {
	ctx := setupIntegrationDB(t)
	db := config.GetDB()
	logger := config.GetLogger()

	day := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	seedHire(t, ctx, 1, 5, "100", "direct", day)

	// Sabotage the detail table so the loop fails mid-run.
	if err := db.Exec("DROP TABLE report_details").Error; err != nil {
		t.Fatalf("drop report_details: %v", err)
	}
	t.Cleanup(models.MigrateTable)

	runsBefore := countRows(t, ctx, &models.Run{})

	result, err := ExecuteRun(ctx, db, logger, RunInput{ModeId: 1, ReviewedDate: day})
	if err != nil {
		t.Fatalf("ExecuteRun should convert storage errors into results, got error: %v", err)
	}
	if result.Success {
		t.Fatalf("result = %+v, want failure", result)
	}
	if result.RunId != nil {
		t.Errorf("failed run returned run id %d, want nil", *result.RunId)
	}
	if got := countRows(t, ctx, &models.Run{}); got != runsBefore {
		t.Errorf("runs after failed run = %d, want %d (rollback)", got, runsBefore)
	}
}

func TestExecuteRun_RerunSequencesRunNumbers(t *testing.T) {
	ctx := setupIntegrationDB(t)
	db := config.GetDB()
	logger := config.GetLogger()

	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	seedHire(t, ctx, 1, 5, "100", "direct", day)

	first, err := ExecuteRun(ctx, db, logger, RunInput{ModeId: 1, ReviewedDate: day})
	if err != nil || !first.Success || first.RunId == nil {
		t.Fatalf("first run = %+v, err = %v", first, err)
	}
	second, err := ExecuteRun(ctx, db, logger, RunInput{ModeId: 1, ReviewedDate: day})
	if err != nil || !second.Success || second.RunId == nil {
		t.Fatalf("second run = %+v, err = %v", second, err)
	}
	if *first.RunId == *second.RunId {
		t.Fatalf("re-run reused run id %d; each execution must insert a new Run", *first.RunId)
	}

	run1, err := models.GetRunById(ctx, *first.RunId)
	if err != nil {
		t.Fatalf("GetRunById first: %v", err)
	}
	run2, err := models.GetRunById(ctx, *second.RunId)
	if err != nil {
		t.Fatalf("GetRunById second: %v", err)
	}
	if run1.RunNumber != 1 || run2.RunNumber != 2 {
		t.Errorf("run numbers = %d, %d, want 1, 2", run1.RunNumber, run2.RunNumber)
	}

	// Both executions report the same contractor; the rows are duplicated
	// across runs, not merged.
	reports1, err := models.GetReportsByRunId(ctx, run1.ID)
	if err != nil {
		t.Fatalf("GetReportsByRunId first: %v", err)
	}
	reports2, err := models.GetReportsByRunId(ctx, run2.ID)
	if err != nil {
		t.Fatalf("GetReportsByRunId second: %v", err)
	}
	if len(reports1) != 1 || len(reports2) != 1 {
		t.Fatalf("report rows = %d, %d, want 1 each", len(reports1), len(reports2))
	}
	if reports1[0].ContractorId != reports2[0].ContractorId {
		t.Errorf("re-run reported contractor %d, want %d", reports2[0].ContractorId, reports1[0].ContractorId)
	}

	// A caller-supplied run number bypasses the sequence.
	explicit := 7
	third, err := ExecuteRun(ctx, db, logger, RunInput{ModeId: 1, ReviewedDate: day, RunNumber: &explicit})
	if err != nil || !third.Success || third.RunId == nil {
		t.Fatalf("third run = %+v, err = %v", third, err)
	}
	run3, err := models.GetRunById(ctx, *third.RunId)
	if err != nil {
		t.Fatalf("GetRunById third: %v", err)
	}
	if run3.RunNumber != 7 {
		t.Errorf("explicit run number = %d, want 7", run3.RunNumber)
	}
}

func TestExecuteRun_UnknownModeRejectedBeforeTransaction(t *testing.T) {
	ctx := setupIntegrationDB(t)
	db := config.GetDB()
	logger := config.GetLogger()

	runsBefore := countRows(t, ctx, &models.Run{})
	_, err := ExecuteRun(ctx, db, logger, RunInput{ModeId: 999, ReviewedDate: time.Now()})
	if err == nil {
		t.Fatal("expected precondition error for unknown mode")
	}
	if got := countRows(t, ctx, &models.Run{}); got != runsBefore {
		t.Errorf("runs after rejected input = %d, want %d", got, runsBefore)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("hiringhall-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=hiringhall_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
