package html

const styleSheet = `body, td { font-family: sans-serif; font-size: 10pt; }
h1 { font-weight: bold; font-size: 18pt; }
.breadcrumb { border: #d6d3ce 1px solid; padding: 2px 4px 2px 4px; }
.footer { margin-top: 20px; border-top: #d6d3ce 1px solid; padding-top: 2px; font-size: 8pt; color: #a0a0a0; }
.footer a { color: #a0a0a0; }
.right { float: right; }
table.coverage { empty-cells: show; border-collapse: collapse; }
table.coverage thead { background-color: #e0e0e0; }
table.coverage thead td { white-space: nowrap; padding: 2px 14px 0px 6px; border-bottom: #b0b0b0 1px solid; }
table.coverage tbody td { white-space: nowrap; padding: 2px 6px 2px 6px; border-bottom: #d6d3ce 1px solid; }
table.coverage tfoot td { white-space: nowrap; padding: 2px 6px 2px 6px; }
table.coverage .bar { text-align: left; }
table.coverage .ctr1, table.coverage .ctr2 { text-align: right; padding-left: 4px; }
.red, .green { display: inline-block; height: 10px; }
.red { background-color: #d22; }
.green { background-color: #2b2; }
pre.source { border: #d6d3ce 1px solid; font-family: monospace; }
pre.source span { display: inline-block; width: 100%; }
.nc { background-color: #ffaaaa; }
.pc { background-color: #ffffaa; }
.fc { background-color: #ccffcc; }
.bnc, .bpc, .bfc { padding-left: 18px; }
`
