package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/appointment"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/financial"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/blobstore"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/render"
)

type AppointmentSource interface {
	ListRange(ctx context.Context, owner uuid.UUID, from, to string) ([]*appointment.Appointment, error)
}

type MovementSource interface {
	Range(ctx context.Context, owner uuid.UUID, from, to string) ([]*financial.Movement, error)
}

// Builder produces the daily report for one owner: stats, rendered
// artifact, stored file and persisted row.
type Builder struct {
	repo         Repository
	appointments AppointmentSource
	movements    MovementSource
	renderer     render.Renderer
	store        blobstore.Store
	zone         *dateutil.Zone
}

func NewBuilder(repo Repository, appointments AppointmentSource, movements MovementSource, renderer render.Renderer, store blobstore.Store, zone *dateutil.Zone) *Builder {
	return &Builder{
		repo:         repo,
		appointments: appointments,
		movements:    movements,
		renderer:     renderer,
		store:        store,
		zone:         zone,
	}
}

// FileName names an artifact by report date and generation instant so a
// regenerated report never overwrites the previous file.
func FileName(date string, at time.Time) string {
	return fmt.Sprintf("reporte_%s_%d.pdf", date, at.UnixMilli())
}

// ComputeStats derives the day's figures. Patients seen counts distinct
// patients over appointments that were neither cancelled nor missed.
func ComputeStats(appts []*appointment.Appointment, movements []*financial.Movement) (Stats, error) {
	var s Stats
	seen := make(map[uuid.UUID]struct{})
	for _, a := range appts {
		s.TotalAppointments++
		switch a.Status {
		case appointment.StatusCompleted:
			s.Completed++
		case appointment.StatusCancelled:
			s.Cancelled++
			continue
		case appointment.StatusNoShow:
			s.NoShow++
			continue
		}
		seen[a.PatientID] = struct{}{}
	}
	s.TotalPatients = len(seen)

	totals, err := financial.Summarize(movements)
	if err != nil {
		return Stats{}, err
	}
	s.Finance = totals
	return s, nil
}

var statusLabels = map[string]string{
	appointment.StatusScheduled:  "Programada",
	appointment.StatusInProgress: "En curso",
	appointment.StatusCompleted:  "Completada",
	appointment.StatusCancelled:  "Cancelada",
	appointment.StatusNoShow:     "No asistió",
}

var directionLabels = map[string]string{
	financial.DirectionIncome:  "Ingreso",
	financial.DirectionExpense: "Egreso",
}

func label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

// Document lays out the report: header, metric cards, then the
// appointment and movement tables.
func Document(d *DayData, generatedAt time.Time) render.Document {
	st := d.Stats
	doc := render.Document{
		Title:    "Reporte diario " + d.Date,
		Subtitle: d.Owner.Name,
		Cards: []render.Card{
			{Label: "Pacientes atendidos", Value: fmt.Sprint(st.TotalPatients)},
			{Label: "Citas", Value: fmt.Sprint(st.TotalAppointments)},
			{Label: "Completadas", Value: fmt.Sprint(st.Completed)},
			{Label: "Canceladas", Value: fmt.Sprint(st.Cancelled)},
			{Label: "No asistieron", Value: fmt.Sprint(st.NoShow)},
			{Label: "Ingresos", Value: "Q " + st.Finance.Income.StringFixed(2)},
			{Label: "Egresos", Value: "Q " + st.Finance.Expenses.StringFixed(2)},
			{Label: "Balance", Value: "Q " + st.Finance.Balance.StringFixed(2)},
		},
		Footer: "Generado " + generatedAt.Format("2006-01-02 15:04"),
	}

	appts := render.Table{
		Title:   "Citas",
		Headers: []string{"Hora", "Paciente", "Título", "Estado"},
		Widths:  []float64{28, 0, 0, 32},
		Empty:   "Sin citas registradas",
	}
	for _, a := range d.Appointments {
		appts.Rows = append(appts.Rows, []string{
			a.StartTime + " - " + a.EndTime,
			a.PatientName,
			a.Title,
			label(statusLabels, a.Status),
		})
	}

	moves := render.Table{
		Title:   "Movimientos",
		Headers: []string{"Tipo", "Categoría", "Descripción", "Monto"},
		Widths:  []float64{24, 40, 0, 30},
		Empty:   "Sin movimientos registrados",
	}
	for _, m := range d.Movements {
		moves.Rows = append(moves.Rows, []string{
			label(directionLabels, m.Direction),
			m.Category,
			m.Description,
			m.Amount.StringFixed(2),
		})
	}
	doc.Tables = []render.Table{appts, moves}
	return doc
}

// Collect loads the owner's appointments and movements for date and
// computes the stats without rendering or persisting anything.
func (b *Builder) Collect(ctx context.Context, owner Owner, date string) (*DayData, error) {
	appts, err := b.appointments.ListRange(ctx, owner.ID, date, date)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	movements, err := b.movements.Range(ctx, owner.ID, date, date)
	if err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}
	stats, err := ComputeStats(appts, movements)
	if err != nil {
		return nil, fmt.Errorf("compute stats: %w", err)
	}
	return &DayData{
		Date:         date,
		Owner:        owner,
		Appointments: appts,
		Movements:    movements,
		Stats:        stats,
	}, nil
}

// Generate builds and persists the report for (date, owner). The artifact
// is stored before the row is written, so a render or storage failure
// leaves any existing row unchanged.
func (b *Builder) Generate(ctx context.Context, owner Owner, date string) (*Report, *DayData, error) {
	data, err := b.Collect(ctx, owner, date)
	if err != nil {
		return nil, nil, err
	}

	at := b.zone.Now()
	pdf, err := b.renderer.Render(Document(data, at))
	if err != nil {
		return nil, nil, fmt.Errorf("render report: %w", err)
	}
	data.PDF = pdf
	data.FileName = FileName(date, at)

	location, err := b.store.Put(ctx, data.FileName, pdf)
	if err != nil {
		return nil, nil, fmt.Errorf("store report: %w", err)
	}

	rep := &Report{Date: date, OwnerID: owner.ID, FilePath: &location}
	rep.apply(data.Stats)
	if err := b.repo.Upsert(ctx, rep); err != nil {
		return nil, nil, fmt.Errorf("save report: %w", err)
	}
	return rep, data, nil
}
