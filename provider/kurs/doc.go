// Package kurs provides the currency exchange office rate provider for kurs.kz.
//
// # Provider
//
// Source: "kurs.kz"
// URL: https://kurs.kz/
// Schedule: configurable, daily by default
//
// Scrapes the exchange office listing and collects the text of every
// purchase and sale rate cell, selected by CSS class:
//
//	purchase: .col-5.text-end.currency.svelte-sdi4lo
//	sale:     .col-5.text-start.currency.svelte-sdi4lo
//
// The collected tokens are reduced into a single summary holding the lowest
// and highest purchase and sale rate on the page. Cells that carry no rate
// (blank, dashes, other text) are skipped, and a group without any rate is
// reported as not found rather than zero.
//
// The page is fetched as static HTML, there is no script execution. The
// fetch is bounded by the provider timeout.
package kurs
