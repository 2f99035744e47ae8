// Package models contains GORM persistence models that map to database tables.
// They are kept apart from domain types so the domain stays free of ORM tags;
// each model has ToDomain and FromDomain mappers used by the repositories.
//
// Tables:
//   - capitation_settings: one row per academic year, rules in a JSON column
//   - budgets: budget submissions with the line-item tree in a JSON column
//   - accountabilities, accountability_tranches: the tranche records
//   - accounting_entries, tranche_revenues, tranche_expenditures: tranche ledgers
//   - learners, schools: read-only registries owned by other services
package models
