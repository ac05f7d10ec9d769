package jobs

import (
	sched "github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/jobs"
)

const (
	DailyReportJob = "daily-report"
	ReminderJob    = "reminders"
	CleanupJob     = "cleanup"
)

type Schedules struct {
	Report   string
	Reminder string
	Cleanup  string
}

// Register adds the three scheduled tasks to r in the stopped state.
func Register(r *sched.Runner, s Schedules, daily *DailyReport, reminders *Reminders, cleanup *Cleanup) error {
	for _, j := range []sched.Job{
		{Name: DailyReportJob, Spec: s.Report, Run: daily.Execute},
		{Name: ReminderJob, Spec: s.Reminder, Run: reminders.Execute},
		{Name: CleanupJob, Spec: s.Cleanup, Run: cleanup.Execute},
	} {
		if err := r.Register(j); err != nil {
			return err
		}
	}
	return nil
}
