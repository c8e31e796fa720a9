// Package convert запускает ElmerGrid для конвертации сетки .unv
// в формат Elmer перед расчётом.
//
// Конвертер не анализирует сетку: он только проверяет, что файл
// существует, и вызывает ElmerGrid в каталоге сетки.
package convert
