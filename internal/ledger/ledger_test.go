package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name string
		due  int64
		paid int64
		want models.FeeStatus
	}{
		{"nothing paid", 1500, 0, models.FeeStatusUnpaid},
		{"part paid", 1500, 500, models.FeeStatusPartial},
		{"settled", 1500, 1500, models.FeeStatusPaid},
		{"overpaid", 1000, 1500, models.FeeStatusPaid},
		{"zero bill", 0, 0, models.FeeStatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(amount(tc.due), amount(tc.paid)))
		})
	}
}

func TestFallbackPolicy(t *testing.T) {
	policy := DefaultFallbackPolicy()
	assert.True(t, policy.AmountFor(models.SchoolLevelPrimary).Equal(amount(1500)))
	assert.True(t, policy.AmountFor(models.SchoolLevelJHS).Equal(amount(2000)))
	assert.True(t, policy.AmountFor("").Equal(amount(2000)))
}

func TestNormalizeScheduleDerivesTotal(t *testing.T) {
	schedule := models.FeeSchedule{GradeLevel: " Class 1 ", Tuition: amount(800), Canteen: amount(400), Others: amount(300), Total: amount(9)}
	require.NoError(t, NormalizeSchedule(&schedule))
	assert.Equal(t, "Class 1", schedule.GradeLevel)
	assert.True(t, schedule.Total.Equal(amount(1500)))

	bad := models.FeeSchedule{GradeLevel: "Class 2", Tuition: amount(-1)}
	assert.ErrorIs(t, NormalizeSchedule(&bad), ErrInvalidAmount)
}

func TestDefaultSchedules(t *testing.T) {
	index := IndexSchedules(DefaultSchedules())
	class1, ok := index.Lookup("Class 1")
	require.True(t, ok)
	assert.True(t, class1.Total.Equal(amount(1500)))
	jhs, ok := index.Lookup("Basic 8 (JHS 2)")
	require.True(t, ok)
	assert.True(t, jhs.Total.Equal(amount(2000)))
	_, ok = index.Lookup("class 1")
	assert.False(t, ok)
}

func student(id, grade string, level models.SchoolLevel) models.Student {
	return models.Student{ID: id, GradeLevel: grade, Level: level, Status: models.StudentStatusActive}
}

func TestReconcileCreatesRecordFromSchedule(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	schedules := IndexSchedules([]models.FeeSchedule{{GradeLevel: "Class 1", Tuition: amount(800), Canteen: amount(400), Others: amount(300), Total: amount(1500)}})

	merged, created := Reconcile([]models.Student{student("s1", "Class 1", models.SchoolLevelPrimary)}, nil, schedules, DefaultFallbackPolicy(), now)

	require.Len(t, created, 1)
	require.Len(t, merged, 1)
	record := created[0]
	assert.Equal(t, "s1", record.StudentID)
	assert.Equal(t, RecordID("s1"), record.ID)
	assert.True(t, record.AmountDue.Equal(amount(1500)))
	assert.True(t, record.AmountPaid.IsZero())
	assert.Nil(t, record.LastPaymentDate)
	assert.Equal(t, models.FeeStatusUnpaid, record.Status)
}

func TestReconcileFallbackAndSkips(t *testing.T) {
	now := time.Now()
	graduated := student("s4", "Class 2", models.SchoolLevelPrimary)
	graduated.Status = models.StudentStatusGraduated
	students := []models.Student{
		student("s1", "Class 9", models.SchoolLevelPrimary),
		student("s2", "Basic 9", models.SchoolLevelJHS),
		student("", "Class 1", models.SchoolLevelPrimary),
		graduated,
	}

	_, created := Reconcile(students, nil, IndexSchedules(nil), DefaultFallbackPolicy(), now)

	require.Len(t, created, 2)
	assert.True(t, created[0].AmountDue.Equal(amount(1500)))
	assert.True(t, created[1].AmountDue.Equal(amount(2000)))
}

func TestReconcileIsIdempotentAndKeepsExisting(t *testing.T) {
	now := time.Now()
	students := []models.Student{student("s1", "Class 1", models.SchoolLevelPrimary), student("s2", "Class 2", models.SchoolLevelPrimary)}
	existing := []models.FeeRecord{
		{ID: "r1", StudentID: "s1", AmountDue: amount(900), AmountPaid: amount(100), Status: models.FeeStatusPartial},
		{ID: "r1-dup", StudentID: "s1", AmountDue: amount(1), Status: models.FeeStatusUnpaid},
	}

	first, created := Reconcile(students, existing, IndexSchedules(nil), DefaultFallbackPolicy(), now)
	require.Len(t, first, 2)
	require.Len(t, created, 1)
	assert.Equal(t, "r1", first[0].ID)
	assert.True(t, first[0].AmountDue.Equal(amount(900)))

	second, createdAgain := Reconcile(students, first, IndexSchedules(nil), DefaultFallbackPolicy(), now)
	assert.Empty(t, createdAgain)
	assert.Equal(t, first, second)
}

func TestPostingScenarios(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	record := NewRecord(student("s1", "Class 1", models.SchoolLevelPrimary), IndexSchedules(DefaultSchedules()), DefaultFallbackPolicy(), now)

	first := models.FeeTransaction{ID: "t1", StudentID: "s1", Amount: amount(500), Date: now, Method: models.PaymentMethodCash}
	require.NoError(t, ValidatePayment(first))
	ApplyPayment(&record, first, now)
	assert.Equal(t, now, record.UpdatedAt)
	assert.True(t, record.AmountPaid.Equal(amount(500)))
	assert.Equal(t, models.FeeStatusPartial, record.Status)

	later := now.AddDate(0, 0, 3)
	second := models.FeeTransaction{ID: "t2", StudentID: "s1", Amount: amount(1000), Date: later, Method: models.PaymentMethodMobileMoney}
	ApplyPayment(&record, second, later)
	assert.Equal(t, later, record.UpdatedAt)
	assert.True(t, record.AmountPaid.Equal(amount(1500)))
	assert.True(t, record.Balance().IsZero())
	assert.Equal(t, models.FeeStatusPaid, record.Status)
	require.NotNil(t, record.LastPaymentDate)
	assert.Equal(t, later, *record.LastPaymentDate)

	require.NoError(t, ValidateAdjustment(amount(1000)))
	ApplyAdjustment(&record, amount(1000), later)
	assert.True(t, record.Balance().Equal(amount(-500)))
	assert.Equal(t, models.FeeStatusPaid, record.Status)

	drift := Verify(record, []models.FeeTransaction{first, second})
	assert.True(t, drift.Consistent)
	assert.Equal(t, 2, drift.Transactions)
}

func TestValidatePaymentRejects(t *testing.T) {
	base := models.FeeTransaction{StudentID: "s1", Amount: amount(10), Method: models.PaymentMethodBankTransfer}

	zero := base
	zero.Amount = decimal.Zero
	assert.ErrorIs(t, ValidatePayment(zero), ErrInvalidAmount)

	negative := base
	negative.Amount = amount(-5)
	assert.ErrorIs(t, ValidatePayment(negative), ErrInvalidAmount)

	method := base
	method.Method = "Cheque"
	assert.ErrorIs(t, ValidatePayment(method), ErrInvalidMethod)

	missing := base
	missing.StudentID = " "
	assert.ErrorIs(t, ValidatePayment(missing), ErrMissingStudent)

	assert.ErrorIs(t, ValidateAdjustment(amount(-1)), ErrInvalidAmount)
	assert.NoError(t, ValidateAdjustment(decimal.Zero))
}

func TestAmountsMustFitTwoDecimalPlaces(t *testing.T) {
	cases := []struct {
		name  string
		value string
		valid bool
	}{
		{"whole", "1500", true},
		{"cents", "1499.99", true},
		{"trailing zeros", "12.500", true},
		{"sub cent", "1499.995", false},
		{"tenth of a cent", "0.001", false},
		{"largest storable", "9999999999.99", true},
		{"too many digits", "10000000000", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			value := decimal.RequireFromString(tc.value)
			assert.Equal(t, tc.valid, ValidAmount(value))

			tx := models.FeeTransaction{StudentID: "s1", Amount: value, Method: models.PaymentMethodCash}
			schedule := models.FeeSchedule{GradeLevel: "Class 1", Tuition: value}
			if tc.valid {
				assert.NoError(t, ValidatePayment(tx))
				assert.NoError(t, ValidateAdjustment(value))
				assert.NoError(t, NormalizeSchedule(&schedule))
				return
			}
			assert.ErrorIs(t, ValidatePayment(tx), ErrInvalidAmount)
			assert.ErrorIs(t, ValidateAdjustment(value), ErrInvalidAmount)
			assert.ErrorIs(t, NormalizeSchedule(&schedule), ErrInvalidAmount)
		})
	}
}

func TestNormalizeScheduleRejectsOversizedTotal(t *testing.T) {
	part := decimal.RequireFromString("4000000000")
	schedule := models.FeeSchedule{GradeLevel: "Class 1", Tuition: part, Canteen: part, Others: part}
	assert.ErrorIs(t, NormalizeSchedule(&schedule), ErrInvalidAmount)

	subCent := decimal.RequireFromString("0.004")
	schedule = models.FeeSchedule{GradeLevel: "Class 1", Tuition: subCent, Canteen: subCent, Others: subCent}
	assert.ErrorIs(t, NormalizeSchedule(&schedule), ErrInvalidAmount)
}

func TestProjectKeepsStoredTimestamp(t *testing.T) {
	stamped := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	record := models.FeeRecord{StudentID: "s1", AmountDue: amount(1500), AmountPaid: amount(500), UpdatedAt: stamped}
	txs := []models.FeeTransaction{{StudentID: "s1", Amount: amount(500), Date: stamped.AddDate(0, 0, 5), Method: models.PaymentMethodCash}}

	projected := Project(record, txs)
	assert.Equal(t, stamped, projected.UpdatedAt)
	assert.True(t, projected.AmountPaid.Equal(amount(500)))
}

func TestPaymentsAreMonotonic(t *testing.T) {
	record := models.FeeRecord{StudentID: "s1", AmountDue: amount(2000), AmountPaid: decimal.Zero}
	Recompute(&record)
	previous := record.AmountPaid
	for i, paid := range []int64{1, 250, 999, 3000} {
		ApplyPayment(&record, models.FeeTransaction{ID: string(rune('a' + i)), StudentID: "s1", Amount: amount(paid), Method: models.PaymentMethodCash}, time.Now())
		assert.True(t, record.AmountPaid.GreaterThan(previous))
		previous = record.AmountPaid
	}
}

func TestVerifyDetectsDrift(t *testing.T) {
	record := models.FeeRecord{StudentID: "s1", AmountDue: amount(1500), AmountPaid: amount(700), Status: models.FeeStatusPartial}
	txs := []models.FeeTransaction{
		{StudentID: "s1", Amount: amount(500), Method: models.PaymentMethodCash},
		{StudentID: "s2", Amount: amount(100), Method: models.PaymentMethodCash},
	}

	drift := Verify(record, txs)
	assert.False(t, drift.Consistent)
	assert.True(t, drift.Difference.Equal(amount(200)))
	assert.True(t, drift.TransactionTotal.Equal(amount(500)))
	assert.Equal(t, 1, drift.Transactions)
}

func TestBuildStatementAndSummary(t *testing.T) {
	now := time.Now()
	record := models.FeeRecord{StudentID: "s1", AmountDue: amount(1500), AmountPaid: amount(600), Status: models.FeeStatusPartial}
	txs := []models.FeeTransaction{
		{StudentID: "s1", Amount: amount(500), Date: now, Method: models.PaymentMethodCash, Description: "Term 1"},
		{StudentID: "s1", Amount: amount(100), Date: now, Method: models.PaymentMethodCash, Description: "Term 1 top-up"},
	}

	statement := BuildStatement(models.Student{ID: "s1"}, record, txs, "GHS", now)
	require.Len(t, statement.Lines, 3)
	assert.True(t, statement.Lines[0].Debit.Equal(amount(1500)))
	assert.True(t, statement.Lines[2].Balance.Equal(amount(900)))
	assert.True(t, statement.Outstanding.Equal(amount(900)))

	rows := []models.LedgerRow{
		{Record: record},
		{Record: models.FeeRecord{AmountDue: amount(1000), AmountPaid: amount(1500), Status: models.FeeStatusPaid}},
		{Record: models.FeeRecord{AmountDue: amount(2000), AmountPaid: decimal.Zero, Status: models.FeeStatusUnpaid}},
	}
	summary := Summarize(rows, "GHS", now)
	assert.Equal(t, 3, summary.Students)
	assert.Equal(t, 1, summary.Paid)
	assert.Equal(t, 1, summary.Partial)
	assert.Equal(t, 1, summary.Unpaid)
	assert.True(t, summary.TotalExpected.Equal(amount(4500)))
	assert.True(t, summary.TotalCollected.Equal(amount(2100)))
	assert.True(t, summary.TotalOutstanding.Equal(amount(2900)))
}
