package settlements

import (
	"log"
	"strconv"
	"strings"

	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
	"github.com/failuretoload/datamonster-web/internal/services/web/routepath"
	"github.com/failuretoload/datamonster-web/internal/services/web/templates"
)

const survivorTableID = "survivor-table"

func settlementView(loc templates.Localizer, settlement backend.Settlement, active string) templates.SettlementView {
	id := settlement.ID.String()
	view := templates.SettlementView{Settlement: settlement, BackURL: routepath.AppSettlements}
	for _, tab := range routepath.Tabs() {
		view.Tabs = append(view.Tabs, templates.TabLink{
			Label:  templates.T(loc, "web.tab."+tab),
			URL:    routepath.AppSettlementTab(id, tab),
			Active: tab == active,
		})
	}
	return view
}

func settlementCards(settlements []backend.Settlement) []templates.SettlementCard {
	cards := make([]templates.SettlementCard, 0, len(settlements))
	for _, settlement := range settlements {
		cards = append(cards, templates.SettlementCard{
			Settlement: settlement,
			URL:        routepath.AppSettlementPopulation(settlement.ID.String()),
		})
	}
	return cards
}

// tableView filters, sorts and pages survivors for q.
func tableView(loc templates.Localizer, settlementID string, q tableQuery, filter survivorFilter, problems tableProblems, survivors []backend.Survivor) templates.TableView {
	base := routepath.AppSettlementPopulation(settlementID)
	view := templates.TableView{
		ID:        survivorTableID,
		Action:    base,
		Filter:    q.filter,
		OrderBy:   q.orderString(),
		PageSize:  q.pageSize,
		CreateURL: q.withDialog(templates.DialogCreate, "").url(base),
	}
	switch {
	case problems.filter != nil:
		log.Printf("web: ignoring survivor filter %q: %v", q.filter, problems.filter)
		view.FilterError = templates.T(loc, "web.population.error.filter")
	case problems.orderBy != nil:
		log.Printf("web: ignoring survivor order: %v", problems.orderBy)
		view.FilterError = templates.T(loc, "web.population.error.order_by")
	}

	rows, err := filter.apply(survivors)
	if err != nil {
		log.Printf("web: apply survivor filter %q: %v", q.filter, err)
		view.FilterError = templates.T(loc, "web.population.error.filter")
		rows = survivors
	}
	sortSurvivors(rows, q.orderBy)
	window := paginate(rows, q.page, q.pageSize)

	for _, key := range q.columns {
		c := columnsByKey[key]
		view.Columns = append(view.Columns, templates.ColumnView{
			Key:     key,
			Label:   templates.T(loc, c.label),
			SortURL: q.toggleSort(key).url(base),
			Sort:    q.sortState(key),
		})
	}
	for _, c := range survivorColumns {
		view.ColumnToggle = append(view.ColumnToggle, templates.ColumnToggle{Key: c.key, Label: templates.T(loc, c.label), Visible: q.visible(c.key)})
	}
	for _, survivor := range window.items {
		id := survivor.ID.String()
		row := templates.RowView{
			ID:        id,
			Name:      survivor.Name,
			ViewURL:   q.withDialog(templates.DialogShow, id).url(base),
			EditURL:   q.withDialog(templates.DialogEdit, id).url(base),
			StatusURL: q.withDialog(templates.DialogStatus, id).url(base),
			DeleteURL: q.withDialog(templates.DialogDelete, id).url(base),
		}
		for _, key := range q.columns {
			row.Cells = append(row.Cells, columnsByKey[key].display(survivor))
		}
		view.Rows = append(view.Rows, row)
	}

	view.Empty = len(window.items) == 0
	view.Page = window.page
	view.PageCount = window.pageCount
	view.Total = window.total
	if window.page > 1 {
		view.PreviousURL = q.withPage(window.page - 1).url(base)
	}
	if window.page < window.pageCount {
		view.NextURL = q.withPage(window.page + 1).url(base)
	}
	return view
}

// dialogFor builds the dialog named by q. ok is false when the dialog needs
// a survivor that is not in the settlement.
func dialogFor(loc templates.Localizer, settlement backend.Settlement, q tableQuery, survivors []backend.Survivor) (*templates.DialogView, bool) {
	settlementID := settlement.ID.String()
	switch q.dialog {
	case templates.DialogCreate:
		dialog := formDialog(loc, settlementID, "", q, formFromSurvivor(backend.DefaultSurvivor()))
		return &dialog, true
	case templates.DialogShow, templates.DialogEdit, templates.DialogStatus, templates.DialogDelete:
	default:
		return nil, true
	}

	survivor, ok := findSurvivor(survivors, q.survivorID)
	if !ok {
		return nil, false
	}
	switch q.dialog {
	case templates.DialogShow:
		dialog := baseDialog(templates.DialogShow, settlementID, q)
		dialog.Title = survivor.Name
		dialog.Survivor = survivor
		for _, c := range survivorColumns {
			dialog.Stats = append(dialog.Stats, templates.StatView{Label: templates.T(loc, c.label), Value: c.display(survivor)})
		}
		return &dialog, true
	case templates.DialogEdit:
		dialog := formDialog(loc, settlementID, survivor.ID.String(), q, formFromSurvivor(survivor))
		dialog.Survivor = survivor
		return &dialog, true
	case templates.DialogStatus:
		dialog := statusDialog(loc, settlementID, survivor, q, statusForm{status: survivor.Status, year: settlement.Year, rawYr: strconv.Itoa(settlement.Year)})
		return &dialog, true
	default:
		dialog := baseDialog(templates.DialogDelete, settlementID, q)
		dialog.Title = templates.T(loc, "web.dialog.delete.title")
		dialog.Survivor = survivor
		dialog.Action = q.withoutDialog().url(routepath.AppSurvivorDelete(settlementID, survivor.ID.String()))
		return &dialog, true
	}
}

func baseDialog(kind, settlementID string, q tableQuery) templates.DialogView {
	return templates.DialogView{
		Kind:     kind,
		CloseURL: q.withoutDialog().url(routepath.AppSettlementPopulation(settlementID)),
		Errors:   map[string]string{},
	}
}

// formDialog is the create dialog when survivorID is empty and the edit
// dialog otherwise.
func formDialog(loc templates.Localizer, settlementID, survivorID string, q tableQuery, form survivorForm) templates.DialogView {
	kind, title, action := templates.DialogCreate, "web.dialog.create.title", routepath.AppSurvivors(settlementID)
	if survivorID != "" {
		kind, title, action = templates.DialogEdit, "web.dialog.edit.title", routepath.AppSurvivor(settlementID, survivorID)
	}
	dialog := baseDialog(kind, settlementID, q)
	dialog.Title = templates.T(loc, title)
	dialog.Action = q.withoutDialog().url(action)
	dialog.Survivor.Name = form.values.Get("name")
	dialog.Fields = formFields(loc, form)
	for key, errKey := range form.errors {
		dialog.Errors[key] = templates.T(loc, errKey)
	}
	return dialog
}

func formFields(loc templates.Localizer, form survivorForm) []templates.FieldView {
	fieldError := func(key string) string {
		if errKey, ok := form.errors[key]; ok {
			return templates.T(loc, errKey)
		}
		return ""
	}
	fields := []templates.FieldView{
		{Name: "name", Label: templates.T(loc, "web.survivor.name"), Type: "text", Value: form.values.Get("name"), Error: fieldError("name")},
		{Name: "gender", Label: templates.T(loc, "web.survivor.gender"), Type: "gender", Value: strings.ToUpper(form.values.Get("gender")), Error: fieldError("gender")},
	}
	for _, field := range survivorNumberFields {
		view := templates.FieldView{
			Name:  field.key,
			Label: templates.T(loc, field.label),
			Type:  "number",
			Value: form.values.Get(field.key),
			Error: fieldError(field.key),
		}
		if field.nonNeg {
			view.Min = "0"
		}
		fields = append(fields, view)
	}
	return fields
}

func statusDialog(loc templates.Localizer, settlementID string, survivor backend.Survivor, q tableQuery, form statusForm) templates.DialogView {
	dialog := baseDialog(templates.DialogStatus, settlementID, q)
	dialog.Title = templates.T(loc, "web.dialog.status.title")
	dialog.Survivor = survivor
	dialog.Action = q.withoutDialog().url(routepath.AppSurvivorStatus(settlementID, survivor.ID.String()))
	dialog.Year = form.rawYr
	for _, status := range backend.Statuses() {
		dialog.Statuses = append(dialog.Statuses, templates.StatusOption{
			Value:    string(status),
			Label:    templates.T(loc, "web.status."+strings.ToLower(string(status))),
			Selected: status == form.status,
		})
	}
	for key, errKey := range form.errors {
		dialog.Errors[key] = templates.T(loc, errKey)
	}
	return dialog
}
