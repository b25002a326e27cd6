package gate

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitRaDev/GMS/internal/model"
)

// memRegistry is an in-memory Registry for state machine tests.
type memRegistry struct {
	mu       sync.Mutex
	vehicles map[string]*model.Vehicle // keyed by normalized plate
	jobs     map[string]*model.JobCard // keyed by job card id
	seq      int
}

func newMemRegistry() *memRegistry {
	return &memRegistry{
		vehicles: make(map[string]*model.Vehicle),
		jobs:     make(map[string]*model.JobCard),
	}
}

func (r *memRegistry) FindVehicleByNumber(_ context.Context, n string) (*model.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vehicles[n], nil
}

func (r *memRegistry) CreateVehicle(_ context.Context, v *model.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if v.ID == "" {
		v.ID = "veh-" + v.VehicleNumber
	}
	v.CreatedAt = time.Now()
	r.vehicles[v.VehicleNumber] = v
	return nil
}

func (r *memRegistry) LatestJobCard(_ context.Context, vehicleID string) (*model.JobCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.JobCard
	for _, j := range r.jobs {
		if j.VehicleID != vehicleID {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	return latest, nil
}

func (r *memRegistry) FindJobCard(_ context.Context, id string) (*model.JobCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id], nil
}

func (r *memRegistry) SaveJobCard(_ context.Context, j *model.JobCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
	return nil
}

// addJob seeds a vehicle with a job card in the given status.
func (r *memRegistry) addJob(plateNum, jobID string, status model.JobStatus) *model.JobCard {
	v := r.vehicles[plateNum]
	if v == nil {
		v = &model.Vehicle{ID: "veh-" + plateNum, VehicleNumber: plateNum}
		r.vehicles[plateNum] = v
	}
	job := &model.JobCard{
		ID:        jobID,
		JobNumber: "JC-" + jobID,
		VehicleID: v.ID,
		Status:    status,
		CreatedAt: time.Now(),
		Vehicle:   v,
	}
	r.jobs[jobID] = job
	return job
}

// recordingLedger captures every appended gate log.
type recordingLedger struct {
	mu      sync.Mutex
	entries []model.GateLog
}

func (l *recordingLedger) AppendGateLog(_ context.Context, e *model.GateLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *e)
	return nil
}

func (l *recordingLedger) ofType(t model.GateEventType) []model.GateLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.GateLog
	for _, e := range l.entries {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// recordingNotifier captures broadcast event names and payloads.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(event string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newTestService() (*Service, *memRegistry, *recordingLedger, *recordingNotifier) {
	reg := newMemRegistry()
	ledger := &recordingLedger{}
	notifier := &recordingNotifier{}
	return NewService(reg, ledger, notifier, nil), reg, ledger, notifier
}

func TestHandleGateEvent_Validation(t *testing.T) {
	svc, _, ledger, _ := newTestService()

	_, err := svc.HandleGateEvent(context.Background(), Event{VehicleNumber: "   ", Direction: model.DirectionIn}, nil)
	assert.ErrorIs(t, err, ErrMissingPlate)

	_, err = svc.HandleGateEvent(context.Background(), Event{VehicleNumber: "MH12AB1234", Direction: "SIDEWAYS"}, nil)
	assert.ErrorIs(t, err, ErrInvalidDirection)

	// Validation failures must leave no ledger trace.
	assert.Empty(t, ledger.entries)
}

func TestHandleGateEvent_In(t *testing.T) {
	testCases := []struct {
		name          string
		seedStatus    model.JobStatus // empty = no job
		expHasJobCard bool
	}{
		{name: "Unknown vehicle", expHasJobCard: false},
		{name: "Idle job", seedStatus: model.StatusIdle, expHasJobCard: true},
		{name: "Ongoing job", seedStatus: model.StatusOngoing, expHasJobCard: true},
		{name: "Test drive job", seedStatus: model.StatusTestDrive, expHasJobCard: true},
		{name: "Completed job", seedStatus: model.StatusCompleted, expHasJobCard: false},
		{name: "Closed job", seedStatus: model.StatusClosed, expHasJobCard: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, reg, ledger, notifier := newTestService()
			if tc.seedStatus != "" {
				reg.addJob("MH12AB1234", "j1", tc.seedStatus)
			}

			decision, err := svc.HandleGateEvent(context.Background(), Event{VehicleNumber: "mh 12 ab 1234", Direction: model.DirectionIn}, nil)
			require.NoError(t, err)

			assert.True(t, decision.Success)
			assert.Equal(t, ActionEntryRequest, decision.Action)
			assert.True(t, decision.RequiresAction)
			assert.Equal(t, "MH12AB1234", decision.VehicleNumber)
			assert.Equal(t, tc.expHasJobCard, decision.HasJobCard)

			// Request phase always logs and always prompts.
			requests := ledger.ofType(model.EventEntryRequest)
			require.Len(t, requests, 1)
			assert.Equal(t, tc.expHasJobCard, requests[0].HasJobCard)
			assert.False(t, requests[0].ActionTaken)
			assert.Equal(t, []string{NotifyEntryRequest}, notifier.names())

			// Request phase never mutates the job.
			if tc.seedStatus != "" {
				assert.Equal(t, tc.seedStatus, reg.jobs["j1"].Status)
				assert.Nil(t, reg.jobs["j1"].VehicleEntryTime)
			}
		})
	}
}

func TestHandleGateEvent_Out(t *testing.T) {
	testCases := []struct {
		name        string
		seedStatus  model.JobStatus // empty = no job
		isTestDrive bool
		expCanExit  bool
		expReason   string
	}{
		{
			name:      "No job card",
			expReason: "No job card found for this vehicle",
		},
		{
			name:       "Idle",
			seedStatus: model.StatusIdle,
			expReason:  "Vehicle has not entered yet (status: IDLE)",
		},
		{
			name:       "Ongoing without test drive",
			seedStatus: model.StatusOngoing,
			expReason:  "Service is still ongoing. Mark as Complete or Test Drive first.",
		},
		{
			name:        "Ongoing with test drive",
			seedStatus:  model.StatusOngoing,
			isTestDrive: true,
			expCanExit:  true,
			expReason:   "Test drive requested.",
		},
		{
			name:       "Closed",
			seedStatus: model.StatusClosed,
			expReason:  "Job is already closed",
		},
		{
			name:       "Completed",
			seedStatus: model.StatusCompleted,
			expCanExit: true,
			expReason:  "Service completed. Ready for exit.",
		},
		{
			name:       "On test drive",
			seedStatus: model.StatusTestDrive,
			expCanExit: true,
			expReason:  "Vehicle is on test drive. Ready for exit.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, reg, ledger, notifier := newTestService()
			if tc.seedStatus != "" {
				reg.addJob("MH12AB1234", "j1", tc.seedStatus)
			}

			decision, err := svc.HandleGateEvent(context.Background(),
				Event{VehicleNumber: "MH12AB1234", Direction: model.DirectionOut, IsTestDrive: tc.isTestDrive}, nil)
			require.NoError(t, err)

			assert.Equal(t, ActionExitRequest, decision.Action)
			assert.True(t, decision.RequiresAction)
			assert.Equal(t, tc.expCanExit, decision.CanExit)
			assert.Equal(t, tc.expReason, decision.ExitReason)

			// Always logged, always prompted, even when exit is disallowed.
			assert.Len(t, ledger.ofType(model.EventExitRequest), 1)
			assert.Equal(t, []string{NotifyExitRequest}, notifier.names())

			if tc.seedStatus != "" {
				assert.Equal(t, tc.seedStatus, reg.jobs["j1"].Status)
			}
		})
	}
}

func TestConfirmEntry_IdleStartsJob(t *testing.T) {
	svc, reg, ledger, notifier := newTestService()
	reg.addJob("MH12AB1234", "j1", model.StatusIdle)

	decision, err := svc.ConfirmEntry(context.Background(), " mh12 ab 1234 ")
	require.NoError(t, err)

	assert.True(t, decision.Success)
	assert.Equal(t, ActionEntryConfirmed, decision.Action)
	assert.Equal(t, model.StatusOngoing, reg.jobs["j1"].Status)
	require.NotNil(t, reg.jobs["j1"].VehicleEntryTime)

	allowed := ledger.ofType(model.EventEntryAllowed)
	require.Len(t, allowed, 1)
	assert.Equal(t, string(model.StatusIdle), allowed[0].PreviousStatus)
	assert.Equal(t, string(model.StatusOngoing), allowed[0].NewStatus)
	assert.True(t, allowed[0].ActionTaken)

	assert.Equal(t, []string{NotifyEntryLogged, NotifyJobStatusChanged}, notifier.names())

	// A second confirmation on the now-ONGOING job must not mutate again.
	decision, err = svc.ConfirmEntry(context.Background(), "MH12AB1234")
	require.NoError(t, err)
	assert.Equal(t, ActionEntryAllowedNoJob, decision.Action)
	assert.Equal(t, model.StatusOngoing, reg.jobs["j1"].Status)
}

func TestConfirmEntry_TestDriveReturn(t *testing.T) {
	svc, reg, ledger, notifier := newTestService()
	reg.addJob("KA05MN0007", "j1", model.StatusTestDrive)

	decision, err := svc.ConfirmEntry(context.Background(), "KA05MN0007")
	require.NoError(t, err)

	assert.Equal(t, ActionTestDriveReturn, decision.Action)
	assert.Equal(t, model.StatusOngoing, reg.jobs["j1"].Status)
	require.NotNil(t, reg.jobs["j1"].TestDriveInTime)
	assert.Len(t, ledger.ofType(model.EventTestDriveReturn), 1)
	assert.Equal(t, []string{NotifyTestDriveReturn, NotifyJobStatusChanged}, notifier.names())
}

func TestConfirmEntry_UnknownVehicleIsCreated(t *testing.T) {
	svc, reg, ledger, _ := newTestService()

	decision, err := svc.ConfirmEntry(context.Background(), "dl 8 4321")
	require.NoError(t, err)

	assert.Equal(t, ActionEntryAllowedNoJob, decision.Action)
	assert.False(t, decision.HasJobCard)

	// Lazily created under the normalized plate, with no extra fields.
	created := reg.vehicles["DL84321"]
	require.NotNil(t, created)
	assert.Empty(t, created.Make)

	allowed := ledger.ofType(model.EventEntryAllowed)
	require.Len(t, allowed, 1)
	assert.False(t, allowed[0].HasJobCard)
}

func TestConfirmExit(t *testing.T) {
	testCases := []struct {
		name         string
		seedStatus   model.JobStatus
		isTestDrive  bool
		expAction    string
		expSuccess   bool
		expStatus    model.JobStatus
		expEventType model.GateEventType
	}{
		{
			name:         "Ongoing with test drive goes out",
			seedStatus:   model.StatusOngoing,
			isTestDrive:  true,
			expAction:    ActionTestDriveOut,
			expSuccess:   true,
			expStatus:    model.StatusTestDrive,
			expEventType: model.EventTestDriveOut,
		},
		{
			name:         "Completed closes",
			seedStatus:   model.StatusCompleted,
			expAction:    ActionExitConfirmed,
			expSuccess:   true,
			expStatus:    model.StatusClosed,
			expEventType: model.EventExitAllowed,
		},
		{
			name:         "Already on test drive exits without change",
			seedStatus:   model.StatusTestDrive,
			expAction:    ActionExitConfirmed,
			expSuccess:   true,
			expStatus:    model.StatusTestDrive,
			expEventType: model.EventExitAllowed,
		},
		{
			name:         "Ongoing without test drive is denied",
			seedStatus:   model.StatusOngoing,
			expAction:    ActionCannotExit,
			expSuccess:   false,
			expStatus:    model.StatusOngoing,
			expEventType: model.EventExitDenied,
		},
		{
			name:         "Idle is denied",
			seedStatus:   model.StatusIdle,
			expAction:    ActionCannotExit,
			expSuccess:   false,
			expStatus:    model.StatusIdle,
			expEventType: model.EventExitDenied,
		},
		{
			name:         "Closed is denied",
			seedStatus:   model.StatusClosed,
			expAction:    ActionCannotExit,
			expSuccess:   false,
			expStatus:    model.StatusClosed,
			expEventType: model.EventExitDenied,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, reg, ledger, _ := newTestService()
			reg.addJob("MH12AB1234", "j1", tc.seedStatus)

			decision, err := svc.ConfirmExit(context.Background(), "MH12AB1234", tc.isTestDrive)
			require.NoError(t, err)

			assert.Equal(t, tc.expSuccess, decision.Success)
			assert.Equal(t, tc.expAction, decision.Action)
			assert.Equal(t, tc.expStatus, reg.jobs["j1"].Status)
			require.Len(t, ledger.ofType(tc.expEventType), 1)
		})
	}
}

func TestConfirmExit_MissingRecords(t *testing.T) {
	svc, reg, ledger, _ := newTestService()

	decision, err := svc.ConfirmExit(context.Background(), "MH12AB1234", false)
	require.NoError(t, err)
	assert.False(t, decision.Success)
	assert.Equal(t, ActionNotFound, decision.Action)

	// No auto-create on exit.
	assert.Empty(t, reg.vehicles)

	reg.vehicles["MH12AB1234"] = &model.Vehicle{ID: "veh-1", VehicleNumber: "MH12AB1234"}
	decision, err = svc.ConfirmExit(context.Background(), "MH12AB1234", false)
	require.NoError(t, err)
	assert.Equal(t, ActionNoJob, decision.Action)

	// Missing-record failures are decisions, not ledger events.
	assert.Empty(t, ledger.entries)
}

func TestConfirmExit_ClosedStampsExitTime(t *testing.T) {
	svc, reg, _, notifier := newTestService()
	reg.addJob("MH12AB1234", "j1", model.StatusCompleted)

	_, err := svc.ConfirmExit(context.Background(), "MH12AB1234", false)
	require.NoError(t, err)

	require.NotNil(t, reg.jobs["j1"].VehicleExitTime)
	assert.Equal(t, []string{NotifyJobClosed, NotifyJobStatusChanged}, notifier.names())
}

func TestForceCloseJob(t *testing.T) {
	svc, reg, ledger, notifier := newTestService()
	reg.addJob("MH12AB1234", "j1", model.StatusOngoing)

	decision, err := svc.ForceCloseJob(context.Background(), "j1")
	require.NoError(t, err)

	assert.True(t, decision.Success)
	assert.Equal(t, ActionForceClosed, decision.Action)
	assert.Equal(t, model.StatusClosed, reg.jobs["j1"].Status)
	require.NotNil(t, reg.jobs["j1"].VehicleExitTime)

	closed := ledger.ofType(model.EventJobClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, string(model.StatusOngoing), closed[0].PreviousStatus)
	assert.Equal(t, string(model.StatusClosed), closed[0].NewStatus)
	assert.Equal(t, []string{NotifyJobClosed, NotifyJobStatusChanged}, notifier.names())

	decision, err = svc.ForceCloseJob(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, decision.Success)
	assert.Equal(t, ActionNotFound, decision.Action)
}

// staleReadRegistry simulates a writer landing between an unlocked read and
// the locked re-read: the first FindJobCard reports the card as ONGOING,
// every later read sees what is actually stored.
type staleReadRegistry struct {
	*memRegistry
	readMu sync.Mutex
	reads  int
}

func (r *staleReadRegistry) FindJobCard(ctx context.Context, id string) (*model.JobCard, error) {
	job, err := r.memRegistry.FindJobCard(ctx, id)
	if job == nil || err != nil {
		return job, err
	}
	r.readMu.Lock()
	r.reads++
	stale := r.reads == 1
	r.readMu.Unlock()

	snapshot := *job
	if stale {
		snapshot.Status = model.StatusOngoing
	}
	return &snapshot, nil
}

func TestForceCloseJob_ReloadsUnderLock(t *testing.T) {
	base := newMemRegistry()
	reg := &staleReadRegistry{memRegistry: base}
	ledger := &recordingLedger{}
	svc := NewService(reg, ledger, &recordingNotifier{}, nil)

	base.addJob("MH12AB1234", "j1", model.StatusCompleted)

	decision, err := svc.ForceCloseJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, decision.Success)

	closed := ledger.ofType(model.EventJobClosed)
	require.Len(t, closed, 1)
	// The transition the concurrent writer produced, not the pre-lock
	// snapshot, is what gets recorded.
	assert.Equal(t, string(model.StatusCompleted), closed[0].PreviousStatus)
}

// Scenario A from the gate playbook: new vehicle arrives, operator books a
// job, entry is confirmed.
func TestScenario_NewVehicleEntry(t *testing.T) {
	svc, reg, _, _ := newTestService()

	decision, err := svc.HandleGateEvent(context.Background(), Event{VehicleNumber: "MH12AB1234", Direction: model.DirectionIn}, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionEntryRequest, decision.Action)
	assert.False(t, decision.HasJobCard)

	// Operator creates the job card (status IDLE), then confirms entry.
	reg.addJob("MH12AB1234", "j1", model.StatusIdle)

	decision, err = svc.ConfirmEntry(context.Background(), "MH12AB1234")
	require.NoError(t, err)
	assert.Equal(t, ActionEntryConfirmed, decision.Action)
	assert.Equal(t, model.StatusOngoing, reg.jobs["j1"].Status)
}

func TestConcurrentConfirmEntry_SamePlateSerialized(t *testing.T) {
	svc, reg, ledger, _ := newTestService()
	reg.addJob("MH12AB1234", "j1", model.StatusIdle)

	var wg sync.WaitGroup
	actions := make([]string, 8)
	for i := 0; i < len(actions); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := svc.ConfirmEntry(context.Background(), "MH12AB1234")
			if !assert.NoError(t, err) {
				return
			}
			actions[i] = d.Action
		}(i)
	}
	wg.Wait()

	// Exactly one caller wins the IDLE transition.
	sort.Strings(actions)
	assert.Equal(t, ActionEntryAllowedNoJob, actions[0])
	assert.Equal(t, ActionEntryConfirmed, actions[len(actions)-1])

	wins := 0
	for _, a := range actions {
		if a == ActionEntryConfirmed {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, ledger.ofType(model.EventEntryAllowed), len(actions))
	assert.Equal(t, model.StatusOngoing, reg.jobs["j1"].Status)
}
