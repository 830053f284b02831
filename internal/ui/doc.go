// Package ui implements the interactive search screen using bubbletea's Elm architecture.
//
// The screen has two focus modes:
//  1. Input: typing feeds the search controller, which debounces and runs the catalog query
//  2. Results: browse the result list, save a book to the library, or switch grid/list view
//
// Filters and paging work in both modes: tab cycles the print type, ctrl+l cycles the language and
// ctrl+n loads the next page.
//
// The [Model] never runs searches itself. Controller state changes are forwarded through a
// latest-wins channel and read back as [Msg] values, the same way a long-running task streams
// progress into the program.
package ui
